package main

import (
	"github.com/chasedut/chatfun/internal/cmd"
)

func main() {
	cmd.Execute()
}
