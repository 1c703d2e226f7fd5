package constants

const (
	Salt         = "dfss-ulak-bibliotheca"
	KeySizeBytes = 16 // 128-bit identifier space
	K            = 20
	KeySpace     = KeySizeBytes * 8

	// Node defaults
	DataDir        = "data"
	PrivateKeyFile = "private_key.hex"
	HTTPPort       = 8000
	LookupPolicy   = "exact"
)
