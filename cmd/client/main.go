package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/CyberSavant2024/SYNCplay/internal/client"
)

func main() {
	pflag.String("server-url", "ws://localhost:3000/api/v1/ws", "Server websocket URL")
	pflag.String("join", "", "Room code to join as a guest; empty creates a room as host")
	pflag.String("log-level", "WARN", "Logging level")
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)

	logLevel := slog.LevelWarn
	logLevel.UnmarshalText([]byte(strings.ToUpper(viper.GetString("log-level"))))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	player := newSimPlayer()
	session, err := client.Dial(ctx, viper.GetString("server-url"), player, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	if code := viper.GetString("join"); code != "" {
		if err := session.JoinRoom(ctx, code); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("joined room %s as guest\n", session.RoomCode())
	} else {
		if err := session.CreateRoom(ctx); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("created room %s, share this code with guests\n", session.RoomCode())
	}

	session.OnStatus = func(status string) {
		fmt.Printf("\r%-40s", status)
	}
	session.OnUserCount = func(count int) {
		fmt.Printf("\nviewers: %d\n", count)
	}
	session.OnClosed = func(message string) {
		fmt.Printf("\n%s\n", message)
	}

	if session.IsHost() {
		go hostPrompt(session, player)
	}

	if err := session.Run(ctx); err != nil {
		logger.Info("session ended", "error", err)
	}
}

// hostPrompt reads control commands from stdin and drives the host's player.
func hostPrompt(session *client.Session, player *simPlayer) {
	fmt.Println("commands: load <video-id> | play | pause | back | fwd | seek <seconds> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "load":
			if len(fields) < 2 {
				fmt.Println("usage: load <video-id>")
				continue
			}
			if err := session.LoadVideo(fields[1]); err != nil {
				fmt.Println(err)
			}
		case "play":
			player.Play()
		case "pause":
			player.Pause()
		case "back":
			session.SeekBy(-10)
		case "fwd":
			session.SeekBy(10)
		case "seek":
			if len(fields) < 2 {
				fmt.Println("usage: seek <seconds>")
				continue
			}
			target, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Println(err)
				continue
			}
			pos, _ := player.CurrentPosition()
			session.SeekBy(target - pos)
		case "quit":
			os.Exit(0)
		default:
			fmt.Println("unknown command")
		}
	}
}
