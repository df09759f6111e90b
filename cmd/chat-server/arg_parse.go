package main

import (
    "fmt"
    "github.com/spf13/cobra"
    "github.com/spf13/pflag"
    "github.com/spf13/viper"
    "log"
    "strings"
    "time"
)

// Prefix of the environment variables that configure the server.
const envPrefix = "CHATROOMS"

// Names of the supported transports.
const (
    transportGorilla = "gorilla"
    transportGobwas = "gobwas"
)

type Args struct {
    // IP on which the server will accept connections. Defaults to 0.0.0.0
    IP string `mapstructure:"ip"`
    // Port on which the server will accept connections. Defaults to 8888
    Port int `mapstructure:"port"`
    // Database is the path to the SQLite database. Defaults to ./chatrooms.db
    Database string `mapstructure:"database"`
    // Transport used for WebSockets, either "gorilla" or "gobwas". Defaults to gorilla
    Transport string `mapstructure:"transport"`
    // ReadSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    ReadSize int `mapstructure:"read_size"`
    // WriteSize allocated for gorilla-ws's buffer when a new connection is accepted. Defaults to 1024
    WriteSize int `mapstructure:"write_size"`
    // IgnoreOrigin and accept connections from any source (mostly for development)
    IgnoreOrigin bool `mapstructure:"ignore_origin"`
    // IdleTimeout is how long a WebSocket may stay without receiving anything. Defaults to 1m
    IdleTimeout time.Duration `mapstructure:"idle_timeout"`
    // MaxMessageLength is the maximum number of characters in a message. Defaults to 500
    MaxMessageLength int `mapstructure:"max_message_length"`
    // SendQueueSize is the number of events that may be waiting for a single session. Defaults to 64
    SendQueueSize int `mapstructure:"send_queue_size"`
    // Debug enables the chat server's debug messages
    Debug bool `mapstructure:"debug"`
    // ShutdownTimeout is how long the server waits while shutting down. Defaults to 30s
    ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// addServeFlags register the options of the `serve` command.
func addServeFlags(flags *pflag.FlagSet) {
    flags.String("ip", "0.0.0.0", "IP on which the server will accept connections")
    flags.Int("port", 8888, "Port on which the server will accept connections")
    flags.String("transport", transportGorilla, "Transport used for WebSockets (gorilla or gobwas)")
    flags.Int("read-size", 1024, "ReadSize allocated for gorilla-ws's buffer when a new connection is accepted")
    flags.Int("write-size", 1024, "WriteSize allocated for gorilla-ws's buffer when a new connection is accepted")
    flags.Bool("ignore-origin", true, "IgnoreOrigin and accept connections from any source (mostly for development)")
    flags.Duration("idle-timeout", time.Minute, "How long a WebSocket may stay without receiving anything")
    flags.Int("max-message-length", 500, "Maximum number of characters in a message")
    flags.Int("send-queue-size", 64, "Number of events that may be waiting for a single session")
    flags.Bool("debug", false, "Log the chat server's debug messages")
    flags.Duration("shutdown-timeout", 30 * time.Second, "How long the server waits while shutting down")
}

// bindFlags make every flag in `flags` available on `v`, replacing dashes
// in their names with underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
    flags.VisitAll(func (f *pflag.Flag) {
        key := strings.ReplaceAll(f.Name, "-", "_")
        if err := v.BindPFlag(key, f); err != nil {
            log.Fatalf("Couldn't bind the flag '%s': %+v", f.Name, err)
        }
    })
}

// initConfig read the configuration file, if any, and the environment.
//
// Options are resolved, from highest to lowest priority: CLI flags,
// environment variables, configuration file, flag defaults.
func initConfig(v *viper.Viper, cmd *cobra.Command, confFile string) error {
    bindFlags(v, cmd.Flags())

    v.SetEnvPrefix(envPrefix)
    v.AutomaticEnv()

    if len(confFile) != 0 {
        v.SetConfigFile(confFile)
        if err := v.ReadInConfig(); err != nil {
            return fmt.Errorf("couldn't read the configuration file '%s': %w", confFile, err)
        }
        log.Printf("Using configuration file '%s'", v.ConfigFileUsed())
    }

    return nil
}

// parseArgs decode the options resolved by `v` and log them.
func parseArgs(v *viper.Viper) (Args, error) {
    var args Args

    if err := v.Unmarshal(&args); err != nil {
        return args, fmt.Errorf("couldn't decode the configuration: %w", err)
    }

    switch args.Transport {
    case transportGorilla, transportGobwas:
    default:
        return args, fmt.Errorf("invalid transport '%s'", args.Transport)
    }

    log.Printf("Starting server with options:")
    log.Printf("  - ip: %+v", args.IP)
    log.Printf("  - port: %+v", args.Port)
    log.Printf("  - database: %+v", args.Database)
    log.Printf("  - transport: %+v", args.Transport)
    log.Printf("  - read_size: %+v", args.ReadSize)
    log.Printf("  - write_size: %+v", args.WriteSize)
    log.Printf("  - ignore_origin: %+v", args.IgnoreOrigin)
    log.Printf("  - idle_timeout: %+v", args.IdleTimeout)
    log.Printf("  - max_message_length: %+v", args.MaxMessageLength)
    log.Printf("  - send_queue_size: %+v", args.SendQueueSize)
    log.Printf("  - debug: %+v", args.Debug)
    log.Printf("  - shutdown_timeout: %+v", args.ShutdownTimeout)

    return args, nil
}
