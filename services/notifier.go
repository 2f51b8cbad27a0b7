package services

// Broadcaster pushes state changes to connected dashboards. kds.Hub is the
// production implementation.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, interface{}) {}

func orNop(b Broadcaster) Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}
