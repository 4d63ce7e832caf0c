package ui

// quietPresenter consumes events but produces no output; only failures
// reach the user, through the error log.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan Event) error {
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
