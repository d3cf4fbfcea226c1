package dynamo

// DynamoDB attribute names used in keys and expressions across the registry tables.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID       = "user_id"
	fieldEmailKey     = "email_key"
	fieldTokenKey     = "token_key"
	fieldSessionToken = "session_token"
	fieldRegistryID   = "registry_id"
	fieldNextSlot     = "next_slot"

	indexSessionToken = "session_token-index"

	// registryID is the single counter row in the registry table.
	registryID = "accounts"
)
