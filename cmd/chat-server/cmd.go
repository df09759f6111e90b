package main

import (
    "context"
    "fmt"
    sqlite_store "github.com/SirGFM/go-chatrooms/sqlite-store"
    gfshutdown "github.com/gelmium/graceful-shutdown"
    "github.com/spf13/cobra"
    "github.com/spf13/viper"
    "log"
    "net/http"
)

// newRootCmd create the command line interface of the chat server.
func newRootCmd() *cobra.Command {
    var confFile string
    v := viper.New()

    root := &cobra.Command {
        Use: "chat-server",
        Short: "A multi-room chat server over WebSockets",
        SilenceUsage: true,
        PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
            return initConfig(v, cmd, confFile)
        },
    }
    root.PersistentFlags().StringVar(&confFile, "config", "", "JSON or YAML file with the configuration options. May be overriden by other CLI arguments")
    root.PersistentFlags().String("database", "./chatrooms.db", "Path to the SQLite database")

    root.AddCommand(newServeCmd(v))
    root.AddCommand(newUseraddCmd(v))

    return root
}

// newServeCmd create the command that runs the server until it's
// interrupted.
func newServeCmd(v *viper.Viper) *cobra.Command {
    cmd := &cobra.Command {
        Use: "serve",
        Short: "Run the chat server",
        Args: cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            args, err := parseArgs(v)
            if err != nil {
                return err
            }
            return runServe(args)
        },
    }
    addServeFlags(cmd.Flags())

    return cmd
}

// newUseraddCmd create the command that registers a new user and prints
// its token.
func newUseraddCmd(v *viper.Viper) *cobra.Command {
    return &cobra.Command {
        Use: "useradd <email> <password>",
        Short: "Register a new user and print its token",
        Args: cobra.ExactArgs(2),
        RunE: func(cmd *cobra.Command, args []string) error {
            store, err := sqlite_store.Open(v.GetString("database"))
            if err != nil {
                return err
            }
            defer store.Close()

            ctx := cmd.Context()
            user, err := store.CreateUser(ctx, args[0], args[1])
            if err != nil {
                return fmt.Errorf("couldn't create the user '%s': %w", args[0], err)
            }

            token, err := store.IssueToken(ctx, user.ID)
            if err != nil {
                return err
            }

            fmt.Fprintln(cmd.OutOrStdout(), token)
            return nil
        },
    }
}

// runServe run the server until a termination signal arrives.
func runServe(args Args) error {
    store, err := sqlite_store.Open(args.Database)
    if err != nil {
        return err
    }
    defer store.Close()

    srv, err := newServer(args, store)
    if err != nil {
        return err
    }

    go func() {
        log.Printf("Waiting...")
        err := srv.httpServer.ListenAndServe()
        if err != nil && err != http.ErrServerClosed {
            log.Fatalf("Couldn't listen on '%s': %+v", srv.httpServer.Addr, err)
        }
    } ()

    wait := gfshutdown.GracefulShutdown(
        context.Background(),
        args.ShutdownTimeout,
        map[string]gfshutdown.Operation {
            "chat-server": func(ctx context.Context) error {
                log.Printf("Exiting...")
                return srv.Shutdown(ctx)
            },
        },
    )

    if code := <-wait; code != 0 {
        return fmt.Errorf("server exited with code %d", code)
    }
    return nil
}
