package config

const (
	// DefaultDatabasePath is the default path for the local cover cache database
	DefaultDatabasePath = "./covercache.db"

	// DefaultCoversDir is where resized cover files are written
	DefaultCoversDir = "./media/covers"

	// DefaultSourcePrecedence is the provider priority used for both
	// acquisition order and cover ranking.
	DefaultSourcePrecedence = "staff,amazon,link,bibliotheca,overdrive,syndetics,worldcat,zola"
)
