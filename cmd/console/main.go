package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"athena-chat-engine/internal/bootstrap"
	"athena-chat-engine/internal/config"
	"athena-chat-engine/internal/engine"
	"athena-chat-engine/internal/entity"
	"athena-chat-engine/internal/tracer"

	"github.com/fatih/color"
)

var (
	userStyle      = color.New(color.FgCyan, color.Bold)
	assistantStyle = color.New(color.FgGreen)
	metaStyle      = color.New(color.FgHiBlack)
	errorStyle     = color.New(color.FgRed, color.Bold)
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	ctx := context.Background()

	if !container.Session.Active() {
		errorStyle.Println("No session token. Set ATHENA_TOKEN and try again.")
		os.Exit(1)
	}
	if claims, ok := container.Session.Claims(); ok {
		metaStyle.Printf("Signed in as %s\n", claims.Subject)
	}

	if err := container.Registry.Load(ctx); err != nil {
		log.Fatalf("Unable to load chats: %v", err)
	}

	go renderEvents(ctx, container)

	repl(ctx, container)
}

// renderEvents follows the turn topic and prints streamed deltas as they
// arrive.
func renderEvents(ctx context.Context, c *bootstrap.Container) {
	messages, err := c.Events.Subscribe(ctx, engine.TurnEventsTopic)
	if err != nil {
		errorStyle.Printf("event subscription failed: %v\n", err)
		return
	}
	for msg := range messages {
		ev, err := engine.DecodeTurnEvent(msg)
		msg.Ack()
		if err != nil {
			continue
		}
		switch ev.Kind {
		case engine.EventDelta:
			assistantStyle.Print(ev.Delta)
		case engine.EventTurnCommitted:
			fmt.Println()
		case engine.EventTurnFailed:
			fmt.Println()
			errorStyle.Println(engine.FailureNotice)
		}
	}
}

func repl(ctx context.Context, c *bootstrap.Container) {
	scanner := bufio.NewScanner(os.Stdin)
	metaStyle.Println("Type a question, or /help for commands.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, c, scanner, line); quit {
				return
			}
			continue
		}
		ask(ctx, c, line)
	}
}

func ask(ctx context.Context, c *bootstrap.Container, question string) {
	userStyle.Printf("Você: %s\n", question)
	done, err := c.Turn.Submit(ctx, question)
	if err != nil {
		errorStyle.Printf("rejected: %v\n", err)
		return
	}
	<-done
	if c.Turn.State() == entity.TurnError {
		c.Turn.Acknowledge()
	}
	if !c.Session.Active() {
		errorStyle.Println("Session expired; please authenticate again.")
		os.Exit(1)
	}
}

func command(ctx context.Context, c *bootstrap.Container, scanner *bufio.Scanner, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		metaStyle.Println("/chats /new [title] /select <id> /rename <id> <title> /delete <id>")
		metaStyle.Println("/rate <message-id|last> <up|down> [comment] /pending /history /approve <id> <text> /reject <id>")
		metaStyle.Println("/logout /quit")

	case "/quit":
		return true

	case "/logout":
		c.Session.Teardown()
		metaStyle.Println("Session cleared.")
		return true

	case "/chats":
		for _, chat := range c.Registry.Chats() {
			marker := " "
			if chat.Id == c.Registry.ActiveChat() {
				marker = "*"
			}
			fmt.Printf("%s %d  %s\n", marker, chat.Id, chat.Title)
		}

	case "/new":
		title := engine.DefaultChatTitle
		if len(args) > 0 {
			title = strings.Join(args, " ")
		}
		chat, err := c.Registry.CreateChat(ctx, title)
		if err != nil {
			errorStyle.Printf("create failed: %v\n", err)
			break
		}
		metaStyle.Printf("Now in chat %d (%s)\n", chat.Id, chat.Title)

	case "/select":
		id, ok := argId(args)
		if !ok {
			break
		}
		if err := c.Registry.SelectChat(ctx, id); err != nil {
			errorStyle.Printf("select failed: %v\n", err)
			break
		}
		printHistory(c, id)

	case "/rename":
		if len(args) < 2 {
			errorStyle.Println("usage: /rename <id> <title>")
			break
		}
		id, ok := argId(args[:1])
		if !ok {
			break
		}
		title := strings.Join(args[1:], " ")
		if confirm(c, scanner, "rename chat", title) {
			if err := c.Registry.RenameChat(ctx, id, title); err != nil {
				errorStyle.Printf("rename failed: %v\n", err)
			}
		}

	case "/delete":
		id, ok := argId(args)
		if !ok {
			break
		}
		if confirm(c, scanner, "delete chat", strconv.FormatInt(id, 10)) {
			if err := c.Registry.DeleteChat(ctx, id); err != nil {
				errorStyle.Printf("delete failed: %v\n", err)
			}
		}

	case "/rate":
		rate(ctx, c, args)

	case "/pending", "/history":
		if err := c.Governor.Refresh(ctx); err != nil {
			errorStyle.Printf("refresh failed: %v\n", err)
			break
		}
		list := c.Governor.ListPending()
		if cmd == "/history" {
			list = c.Governor.ListHistory()
		}
		for _, d := range list {
			fmt.Printf("%d [%s] %s\n", d.Id, d.Status, d.Text)
		}

	case "/approve":
		if len(args) < 2 {
			errorStyle.Println("usage: /approve <id> <final text>")
			break
		}
		id, ok := argId(args[:1])
		if !ok {
			break
		}
		text := strings.Join(args[1:], " ")
		if confirm(c, scanner, "approve directive", text) {
			if err := c.Governor.Approve(ctx, id, text); err != nil {
				errorStyle.Printf("approve failed: %v\n", err)
			}
		}

	case "/reject":
		id, ok := argId(args)
		if !ok {
			break
		}
		if confirm(c, scanner, "reject directive", strconv.FormatInt(id, 10)) {
			if err := c.Governor.Reject(ctx, id); err != nil {
				errorStyle.Printf("reject failed: %v\n", err)
			}
		}

	default:
		errorStyle.Printf("unknown command %s\n", cmd)
	}
	return false
}

func rate(ctx context.Context, c *bootstrap.Container, args []string) {
	if len(args) < 2 {
		errorStyle.Println("usage: /rate <message-id|last> <up|down> [comment]")
		return
	}

	chatId := c.Registry.ActiveChat()
	var target entity.MessageID
	if args[0] == "last" {
		msgs := c.Registry.Messages(chatId)
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == entity.MessageRoleAssistant {
				target = msgs[i].Id
				break
			}
		}
	} else {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			errorStyle.Println("message id must be numeric")
			return
		}
		target = entity.NewPersistedID(id)
	}

	rating := entity.RatingUp
	if args[1] == "down" {
		rating = entity.RatingDown
	}
	comment := strings.Join(args[2:], " ")

	if err := c.Feedback.Rate(ctx, chatId, target, rating, comment); err != nil {
		errorStyle.Printf("feedback failed: %v\n", err)
		return
	}
	metaStyle.Println("Obrigado pelo feedback!")
}

func printHistory(c *bootstrap.Container, chatId int64) {
	for _, msg := range c.Registry.Messages(chatId) {
		if msg.Role == entity.MessageRoleUser {
			userStyle.Printf("Você: %s\n", msg.Content)
		} else {
			assistantStyle.Printf("ATHENA: %s\n", msg.Content)
		}
	}
}

// confirm routes destructive actions through the engine's single-slot
// confirmation channel.
func confirm(c *bootstrap.Container, scanner *bufio.Scanner, action, detail string) bool {
	result, err := c.Confirmer.Request(action, detail)
	if err != nil {
		errorStyle.Printf("%v\n", err)
		return false
	}
	fmt.Printf("%s %q, confirm? [y/N] ", action, detail)
	answer := ""
	if scanner.Scan() {
		answer = strings.TrimSpace(strings.ToLower(scanner.Text()))
	}
	c.Confirmer.Resolve(answer == "y" || answer == "yes")
	return <-result
}

func argId(args []string) (int64, bool) {
	if len(args) < 1 {
		errorStyle.Println("an id argument is required")
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		errorStyle.Println("id must be numeric")
		return 0, false
	}
	return id, true
}
