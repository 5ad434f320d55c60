package entities

// Local storage layout for small client-side values (the equivalent of the
// browser's localStorage).
const (
	LocalStorageDatabase = "local_storage"
	LocalStorageTable    = "items"

	SettingKeyAuthToken = "auth_token"
)
