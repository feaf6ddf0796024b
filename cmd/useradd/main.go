// Command useradd inserts one credential row into the chat server's SQLite
// store, hashing the password with bcrypt.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mkrasov/tcpchat/internal/creds"
)

func main() {
	dbPath := flag.String("db", "chat.db", "credential database path")
	login := flag.String("login", "", "login")
	password := flag.String("password", "", "password")
	nickname := flag.String("nickname", "", "chat nickname")
	flag.Parse()

	if *login == "" || *password == "" || *nickname == "" {
		fmt.Fprintln(os.Stderr, "usage: useradd -db chat.db -login alice -password pw1 -nickname Alice")
		os.Exit(2)
	}

	store := creds.NewSQLiteStore(*dbPath)
	if err := store.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = store.Disconnect() }()

	if err := store.AddUser(*login, *password, *nickname); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("user %s added as %s\n", *login, *nickname)
}
