package switchcase

// Run executes block against a fresh Switch for subject and resolves it
// when control leaves the block, whether the block returns normally,
// returns an error, or panics. Resolution runs exactly once; a panic
// still propagates after the Switch is frozen.
//
// A block error takes precedence over a resolution error, but the
// Output of the unconditional resolution is returned either way.
func Run(subject any, block func(*Switch) error, opts ...Option) (out Output, err error) {
	s := New(subject, opts...)
	defer func() {
		rOut, rErr := s.Resolve()
		out = rOut
		if err == nil {
			err = rErr
		}
	}()
	err = block(s)
	return
}
