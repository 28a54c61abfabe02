// event-cli — консольная утилита для наблюдения за событиями редактора
// в NATS JetStream: хвост потока (tail), сводка по типам (stats).
//
// Примеры:
//
//	event-cli -server nats://localhost:4222 -cmd tail -follow
//	event-cli -cmd tail -types level.saved,level.published -limit 50
//	event-cli -cmd stats -since 2h
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"
)

const (
	defaultServerAddr = "nats://localhost:4222"
	defaultStream     = "EDITOR_EVENTS"
)

// envelope повторяет структуру eventbus.Envelope в той части, которая
// нужна для печати. Утилита намеренно не тянет internal-пакеты сервера.
type envelope struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`
	LevelID   string    `json:"level_id,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
}

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "адрес NATS сервера")
		stream     = flag.String("stream", defaultStream, "имя JetStream стрима")
		command    = flag.String("cmd", "tail", "команда: tail, stats")
		eventTypes = flag.String("types", "", "фильтр по типам событий (через запятую)")
		levelID    = flag.String("level", "", "фильтр по id уровня")
		since      = flag.String("since", "1h", "глубина истории (например 1h, 30m)")
		limit      = flag.Int("limit", 100, "максимум событий")
		follow     = flag.Bool("follow", false, "ждать новые события (как tail -f)")
	)
	flag.Parse()

	nc, err := nats.Connect(*serverAddr)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer nc.Drain()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("❌ JetStream недоступен: %v", err)
	}

	sinceDur, err := time.ParseDuration(*since)
	if err != nil {
		log.Fatalf("❌ Неверная длительность -since: %v", err)
	}

	typeFilter := parseList(*eventTypes)

	switch *command {
	case "tail":
		runTail(js, *stream, typeFilter, *levelID, sinceDur, *limit, *follow)
	case "stats":
		runStats(js, *stream, sinceDur)
	default:
		fmt.Fprintf(os.Stderr, "неизвестная команда: %s\n", *command)
		flag.Usage()
		os.Exit(2)
	}
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matches(ev *envelope, types []string, levelID string) bool {
	if levelID != "" && ev.LevelID != levelID {
		return false
	}
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if ev.EventType == t {
			return true
		}
	}
	return false
}

// runTail печатает события стрима начиная с -since, при -follow
// продолжает ждать новые.
func runTail(js nats.JetStreamContext, stream string, types []string, levelID string, since time.Duration, limit int, follow bool) {
	startTime := time.Now().Add(-since)

	sub, err := js.SubscribeSync("editor.>",
		nats.BindStream(stream),
		nats.StartTime(startTime),
		nats.AckNone(),
	)
	if err != nil {
		log.Fatalf("❌ Подписка не удалась: %v", err)
	}
	defer sub.Unsubscribe()

	printed := 0
	for printed < limit || follow {
		wait := 2 * time.Second
		if follow {
			wait = 30 * time.Second
		}
		msg, err := sub.NextMsg(wait)
		if err == nats.ErrTimeout {
			if follow {
				continue
			}
			break
		}
		if err != nil {
			log.Fatalf("❌ Ошибка чтения: %v", err)
		}

		var ev envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			continue
		}
		if !matches(&ev, types, levelID) {
			continue
		}

		printEvent(&ev)
		printed++
	}

	fmt.Printf("— всего событий: %d\n", printed)
}

func printEvent(ev *envelope) {
	line := fmt.Sprintf("%s  %-18s src=%-8s", ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.Source)
	if ev.LevelID != "" {
		line += " level=" + ev.LevelID
	}
	if len(ev.Payload) > 0 && len(ev.Payload) <= 120 {
		line += " payload=" + string(ev.Payload)
	}
	fmt.Println(line)
}

// runStats агрегирует события за период по типам.
func runStats(js nats.JetStreamContext, stream string, since time.Duration) {
	startTime := time.Now().Add(-since)

	sub, err := js.SubscribeSync("editor.>",
		nats.BindStream(stream),
		nats.StartTime(startTime),
		nats.AckNone(),
	)
	if err != nil {
		log.Fatalf("❌ Подписка не удалась: %v", err)
	}
	defer sub.Unsubscribe()

	counts := make(map[string]int)
	total := 0
	for {
		msg, err := sub.NextMsg(2 * time.Second)
		if err == nats.ErrTimeout {
			break
		}
		if err != nil {
			log.Fatalf("❌ Ошибка чтения: %v", err)
		}

		var ev envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			continue
		}
		counts[ev.EventType]++
		total++
	}

	fmt.Printf("События за %s (стрим %s):\n", since, stream)
	for t, n := range counts {
		fmt.Printf("  %-20s %d\n", t, n)
	}
	fmt.Printf("  %-20s %d\n", "итого", total)
}
