package main

import "github.com/fragmede/authdesk/internal/cli"

func main() {
	cli.Execute()
}
