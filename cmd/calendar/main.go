package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"ms-calendar/internal/calendar"
	"ms-calendar/internal/config"
	"ms-calendar/internal/events/event_api"
	"ms-calendar/internal/events/service"
	"ms-calendar/internal/kafka"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

func main() {
	baseURL := flag.String("url", envOr("CALENDAR_URL", "http://localhost:8080"), "calendar service base URL")
	token := flag.String("token", os.Getenv("CALENDAR_TOKEN"), "session token or OIDC id token")
	viewName := flag.String("view", "month", "month, week, day or list")
	dateArg := flag.String("date", "", "reference date YYYY-MM-DD, today when empty")
	follow := flag.Bool("follow", false, "print events as they are created, read from Kafka")
	flag.Parse()

	if *follow {
		if err := followCreated(); err != nil {
			log.Fatal(err)
		}
		return
	}

	view, err := calendar.ParseView(*viewName)
	if err != nil {
		log.Fatal(err)
	}
	date := time.Now().UTC()
	if *dateArg != "" {
		if date, err = utils.ParseDate(*dateArg); err != nil {
			log.Fatal(err)
		}
	}

	client := calendar.NewClient(*baseURL, *token)
	events, _, err := client.Fetch(context.Background(), view, date)
	if err != nil {
		log.Fatal(err)
	}

	start, end := calendar.DateRange(view, date)
	from, _ := utils.ParseDate(start)
	to, _ := utils.ParseDate(end)
	printAgenda(os.Stdout, calendar.NonEmpty(calendar.GroupByDay(events, from, to)), start, end)
}

func printAgenda(w io.Writer, days []calendar.Day, start, end string) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Agenda %s → %s\n", start, end)
	if len(days) == 0 {
		fmt.Fprintln(w, "  no events")
		return
	}
	for _, d := range days {
		bold.Fprintf(w, "\n%s\n", d.Date.Format("Monday 02 January 2006"))
		for _, e := range d.Events {
			fmt.Fprintf(w, "  %s–%s  %s %s%s\n",
				e.StartDate.UTC().Format("15:04"),
				e.EndDate.UTC().Format("15:04"),
				categoryTag(e.Category),
				e.Title,
				restriction(e))
		}
	}
}

var categoryColors = map[models.EventCategory]color.Attribute{
	models.CategoryVideo:      color.FgBlue,
	models.CategoryExpo:       color.FgMagenta,
	models.CategoryAG:         color.FgRed,
	models.CategoryLive:       color.FgHiRed,
	models.CategoryMeeting:    color.FgCyan,
	models.CategoryTraining:   color.FgHiCyan,
	models.CategoryConference: color.FgHiMagenta,
}

func categoryTag(c models.EventCategory) string {
	attr, ok := categoryColors[c]
	if !ok {
		attr = color.FgWhite
	}
	return color.New(attr).Sprintf("[%s]", event_api.CategoryLabel(string(c)))
}

func restriction(e models.Event) string {
	var parts []string
	if e.IsConfidential {
		parts = append(parts, "confidential")
	}
	for _, r := range e.AllowedRoles {
		parts = append(parts, event_api.RoleLabel(r))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func followCreated() error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}
	logs := logger.NewWithWriter(os.Stderr)
	logs.SetLevel("WARN")

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventCreatedTopic, "calendar-cli", logs)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Following %s on %v\n", cfg.Kafka.EventCreatedTopic, cfg.Kafka.Brokers)
	return consumer.Start(ctx, func(_ context.Context, _ string, value []byte) error {
		var msg service.EventCreatedMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode event.created: %w", err)
		}
		fmt.Printf("%s  %s %s\n",
			msg.StartDate.UTC().Format("2006-01-02 15:04"),
			categoryTag(models.EventCategory(msg.Category)),
			msg.Title)
		return nil
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
