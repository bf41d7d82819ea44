package state

// Output is the physical relay driven on every transition.
type Output interface {
	SetRelay(on bool) error
}

// Publisher reports the relay state to the remote side.
type Publisher interface {
	PublishStatus(payload string) error
}
