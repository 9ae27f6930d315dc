package services

import "github.com/12008yz/chibox-reveal/internal/reveal"

// RevealPublisher pushes reveal session events to the user's connected views.
type RevealPublisher interface {
	PublishRevealEvent(userID int64, ev reveal.Event)
}

// StaleNotifier tells the hosting page its cached case/inventory data is
// stale and must be refetched.
type StaleNotifier interface {
	NotifyDataStale(userID int64, caseID string)
}
