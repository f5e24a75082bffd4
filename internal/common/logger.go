package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const logFileName = "quarry.log"

// InitLogger builds the arbor logger described by config.Logging. Output
// "file" writes a rotating log under logging.dir (./logs next to the
// executable when unset); "stdout" or "console" writes text to the console.
// With no recognised output the console is used.
func InitLogger(config *Config) arbor.ILogger {
	var toFile, toConsole bool
	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			toFile = true
		case "stdout", "console":
			toConsole = true
		}
	}

	logger := arbor.NewLogger()

	if toFile {
		dir, err := logsDirectory(config.Logging.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
			toConsole = true
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, logFileName),
				TimeFormat: "2006-01-02 15:04:05.000",
				MaxSize:    100 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	if toConsole || !toFile {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			TextOutput: true,
		})
	}

	return logger.WithLevelFromString(config.Logging.Level)
}

func logsDirectory(dir string) (string, error) {
	if dir == "" {
		execPath, err := os.Executable()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(filepath.Dir(execPath), "logs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
