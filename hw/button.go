// Package hw connects the controller to its relay and push button, either on
// real GPIO pins or through a console simulator.
package hw

// EdgeButton turns a level reading into press events. A press is reported
// once, on the transition from released to held.
type EdgeButton struct {
	level func() bool
	held  bool
}

func NewEdgeButton(level func() bool) *EdgeButton {
	return &EdgeButton{level: level}
}

// Poll reports whether the button was pressed since the last poll.
func (b *EdgeButton) Poll() bool {
	down := b.level()
	pressed := down && !b.held
	b.held = down
	return pressed
}
