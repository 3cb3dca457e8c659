package domain

// Keys used by transports when decoding validation requests.
const (
	// KeyParams holds the raw record to validate.
	KeyParams = "params"
	// KeyBindings holds the external bindings visible to rule clauses.
	KeyBindings = "bindings"
	// KeyBase holds a stored record being re-validated.
	KeyBase = "base"

	// BindingNow is the conventional binding for the current time.
	BindingNow = "now"

	// MessageRequired is the message of every required error.
	MessageRequired = "can't be blank"
	// MessageInvalid is used when a rule clause has no message.
	MessageInvalid = "is invalid"
)
