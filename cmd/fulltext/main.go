// Command fulltext manages a flat-file fulltext index from the shell.
//
// Usage:
//
//	go run ./cmd/fulltext --data-dir data/index index wiki:cats notes/cats.txt
//	go run ./cmd/fulltext --data-dir data/index search "cats -dogs"
package main

import "github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/cli"

func main() {
	cli.Execute()
}
