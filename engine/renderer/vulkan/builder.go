package vulkan

import "github.com/spaghettifunk/nya/engine/core"

// buildLatch is the one-way flag shared by the configuration builders. Once consumed, every
// further mutation or Build is a precondition error.
type buildLatch struct {
	built bool
}

func (l *buildLatch) check(op string) error {
	return core.Check(!l.built, op, "%w", core.ErrBuilderConsumed)
}

func (l *buildLatch) consume(op string) error {
	if err := l.check(op); err != nil {
		return err
	}
	l.built = true
	return nil
}
