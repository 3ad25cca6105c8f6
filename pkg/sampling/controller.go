package sampling

import "github.com/itohio/gosampler/pkg/command"

// Controller owns a State and mutates it only through Apply.
// It is not safe for concurrent use; the control loop is its single writer.
type Controller struct {
	state State
}

// NewController creates a Controller starting from initial.
func NewController(initial State) *Controller {
	return &Controller{state: initial}
}

// Apply applies cmd and returns the resulting state.
func (c *Controller) Apply(cmd command.Command) State {
	c.state = Apply(c.state, cmd)
	return c.state
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}
