package domain

// CanChat is the chat gate: the listing owner may always use the channel;
// any other actor only through an accepted request they are a party to.
// Pending, rejected and cancelled requests keep the gate closed.
func CanChat(listingOwnerID, actorID string, request *MatchRequest) bool {
	if actorID == "" {
		return false
	}
	if actorID == listingOwnerID {
		return true
	}
	if request == nil || request.Status != RequestStatusAccepted {
		return false
	}
	return actorID == request.RequesterID || actorID == request.OwnerID
}
