package go_chatrooms

import (
    "log"
)

// Maximum length, in characters, of a message after trimming it.
const defMaxMessageLength = 500

// How many outbound events may be queued on a session before it's considered
// too slow and dropped.
const defSendQueueSize = 64

// ServerConf customizes a `ChatServer`.
type ServerConf struct {
    // MaxMessageLength is the maximum number of characters in a message,
    // after trimming it.
    MaxMessageLength int

    // SendQueueSize is the number of outbound events that may be waiting
    // to be written to a single session.
    SendQueueSize int

    // Logger used by the server to report events. If this is nil, no
    // message shall be logged!
    Logger *log.Logger

    // Whether debug messages should be logged.
    DebugLog bool
}

// GetDefaultServerConf retrieve a usable configuration.
//
// The default logger is nil, so nothing is logged unless the caller
// supplies one.
func GetDefaultServerConf() ServerConf {
    return ServerConf {
        MaxMessageLength: defMaxMessageLength,
        SendQueueSize: defSendQueueSize,
    }
}

// sanitize replace every unset field with its default value.
func (c ServerConf) sanitize() ServerConf {
    if c.MaxMessageLength <= 0 {
        c.MaxMessageLength = defMaxMessageLength
    }
    if c.SendQueueSize <= 0 {
        c.SendQueueSize = defSendQueueSize
    }

    return c
}

// debugf log a debug message, if debug logging was enabled.
func (c *ServerConf) debugf(format string, args ...interface{}) {
    if c.DebugLog && c.Logger != nil {
        c.Logger.Printf("[DEBUG] " + format, args...)
    }
}

// infof log an informative message.
func (c *ServerConf) infof(format string, args ...interface{}) {
    if c.Logger != nil {
        c.Logger.Printf("[INFO] " + format, args...)
    }
}

// errorf log an error.
func (c *ServerConf) errorf(format string, args ...interface{}) {
    if c.Logger != nil {
        c.Logger.Printf("[ERROR] " + format, args...)
    }
}
