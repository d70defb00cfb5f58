// Command chat is a terminal client for the gateway.
// Each input line is "<group_id> <text>"; received messages are printed as they arrive.
package main

import (
	"bufio"
	"chat-gateway/client"
	"chat-gateway/domain"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	GatewayAddress string `env:"CHAT_GATEWAY_ADDR,default=ws://localhost:8080/ws"`
	Token          string `env:"CHAT_TOKEN,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, config.GatewayAddress, config.Token)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	history, err := c.History(10 * time.Second)
	if err != nil {
		return exitRuntime, fmt.Errorf("waiting for history: %w", err)
	}
	// history is newest first
	for i := len(history) - 1; i >= 0; i-- {
		printMessage(history[i])
	}
	log.Info("Connected, type '<group_id> <text>' to send (Ctrl+C to quit)", "address", config.GatewayAddress)

	received := make(chan error, 1)
	go func() {
		for {
			frame, err := c.Next(time.Time{})
			if err != nil {
				received <- err
				return
			}
			msg, err := client.DecodeMessage(frame)
			if err != nil {
				color.Red.Println(err.Error())
				continue
			}
			printMessage(msg)
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			groupID, text, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
			if !ok {
				color.Yellow.Println("usage: <group_id> <text>")
				continue
			}
			if err := c.Send(domain.GroupID(groupID), text); err != nil {
				log.Error("Send failed", "error", err)
				stop()
				return
			}
		}
		stop()
	}()

	select {
	case <-ctx.Done():
		return exitOK, nil
	case err := <-received:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func printMessage(m domain.Message) {
	fmt.Printf("%s %s %s: %s\n",
		color.Gray.Sprint(m.CreatedAt.Local().Format(time.TimeOnly)),
		color.Cyan.Sprint(string(m.GroupID)),
		color.Green.Sprint(string(m.AuthorID)),
		m.Text,
	)
}
