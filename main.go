package main

import "github.com/vibast-solutions/ms-go-lms-payments/cmd"

func main() {
	cmd.Execute()
}
