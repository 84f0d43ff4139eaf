package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite tests the log package.
type LoggerTestSuite struct {
	suite.Suite
	originalLogger zerolog.Logger
	testOutput     *bytes.Buffer
}

// SetupTest runs before each test.
func (s *LoggerTestSuite) SetupTest() {
	s.originalLogger = Logger

	s.testOutput = &bytes.Buffer{}
	Logger = zerolog.New(s.testOutput).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}

// TearDownTest runs after each test.
func (s *LoggerTestSuite) TearDownTest() {
	Logger = s.originalLogger
}

// TestInfoLevel tests that info messages are written.
func (s *LoggerTestSuite) TestInfoLevel() {
	Info().Str("key", "value").Msg("info message")

	output := s.testOutput.String()
	s.Contains(output, "info message")
	s.Contains(output, `"key":"value"`)
	s.Contains(output, `"level":"info"`)
}

// TestWarnLevel tests that warning messages are written.
func (s *LoggerTestSuite) TestWarnLevel() {
	Warn().Msg("warn message")

	output := s.testOutput.String()
	s.Contains(output, "warn message")
	s.Contains(output, `"level":"warn"`)
}

// TestErrorLevel tests that error messages are written.
func (s *LoggerTestSuite) TestErrorLevel() {
	Error().Msg("error message")

	output := s.testOutput.String()
	s.Contains(output, "error message")
	s.Contains(output, `"level":"error"`)
}

// TestDebugLevel tests that debug messages are written at debug level.
func (s *LoggerTestSuite) TestDebugLevel() {
	Debug().Msg("debug message")

	output := s.testOutput.String()
	s.Contains(output, "debug message")
}

// TestSetDebugMode tests switching the global logger to debug level.
func (s *LoggerTestSuite) TestSetDebugMode() {
	SetDebugMode()
	s.Equal(zerolog.DebugLevel, Logger.GetLevel())
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
