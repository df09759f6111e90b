package main

import (
    "log"
    "os"
)

func main() {
    log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)

    defer func() {
        if r := recover(); r != nil {
            log.Fatalf("Application panicked! %+v", r)
        }
    } ()

    if err := newRootCmd().Execute(); err != nil {
        os.Exit(1)
    }
}
