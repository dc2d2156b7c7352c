package gateway

// Observer is told when a refresh round starts and how it ended.
// Both calls happen once per network refresh, never per waiting caller.
type Observer interface {
	RefreshStarted()
	RefreshFinished(err error)
}

type nopObserver struct{}

func (nopObserver) RefreshStarted()       {}
func (nopObserver) RefreshFinished(error) {}
