package event

const UserRegistrationDestination string = "user_registration"
const UserRegistrationDestinationConsumerNotification string = "user_registration_notification"

// UserRegistrationMessage is published by the identity service when an
// account is created. UserID stays numeric on the wire.
type UserRegistrationMessage struct {
	UserID         int64  `json:"user_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	ChallengeToken string `json:"challenge_token,omitempty"`
}
