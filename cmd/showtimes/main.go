package main

import (
	"context"

	"showtimes-backend/cmd/showtimes/commands"
	"showtimes-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext(context.Background()))
}
