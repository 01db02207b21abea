package stream

// Event is a completion or signal produced by the connection's asynchronous
// work. The owner passes every Event back to Connection.Handle.
type Event interface {
	generation() uint64
}

// Opened reports a successful dial.
type Opened struct {
	Gen       uint64
	Transport Transport
}

// OpenFailed reports a failed dial.
type OpenFailed struct {
	Gen uint64
	Err error
}

// Closed reports the end of an open transport.
type Closed struct {
	Gen uint64
	Err error
}

// FrameReceived carries one raw inbound message.
type FrameReceived struct {
	Gen  uint64
	Data []byte
}

// RetryDue fires when a reconnect delay has elapsed.
type RetryDue struct {
	Gen uint64
}

func (e Opened) generation() uint64        { return e.Gen }
func (e OpenFailed) generation() uint64    { return e.Gen }
func (e Closed) generation() uint64        { return e.Gen }
func (e FrameReceived) generation() uint64 { return e.Gen }
func (e RetryDue) generation() uint64      { return e.Gen }
