package main

import (
	"github.com/vacstatus/vacstatus/internal/cmd"
)

func main() {
	cmd.Execute()
}
