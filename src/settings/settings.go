package settings

import "sync"

type Settings struct {
	// The name of the database the mapper binds collections in
	DatabaseName string

	// Batch size applied to unbounded find executions
	BatchSize int32

	// Strongly verbose logging
	Verbose bool

	Debug bool // Enable development logging
}

var (
	instance *Settings
	once     sync.Once
)

// GetSettings returns the process-wide mapper defaults.
func GetSettings() *Settings {
	once.Do(func() {
		instance = &Settings{
			DatabaseName: "docmap",
			BatchSize:    100,
		}
	})
	return instance
}
