package main

import "github.com/vibast-solutions/ms-go-lostfound-auth/cmd"

func main() {
	cmd.Execute()
}
