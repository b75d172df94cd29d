package main

import (
	"context"
	"os"

	"github.com/sandeepkv93/attendance-session-service/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
