// Command carectl es un cliente de línea de comandos para caregiver-support.
// Guarda token, recipient activo y desbloqueos en un archivo local (o en Redis
// con CARECTL_REDIS_ADDR para compartir el estado entre terminales).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"caregiver-support/internal/client/api"
	"caregiver-support/internal/client/emergency"
	"caregiver-support/internal/client/storage"
	"caregiver-support/internal/client/workspace"

	"github.com/go-redis/redis/v8"
	"github.com/lmittmann/tint"
)

const usage = `usage: carectl [flags] <command> [args]

commands:
  register <email> <name>        crea la cuenta (password por -password o CARECTL_PASSWORD)
  login <email>                  inicia sesión
  logout
  recipients                     lista care recipients (* = activo)
  recipients add <name>
  recipients rename <id> <name>
  recipients rm <id>
  use <id>                       cambia el care recipient activo
  list <resource>                p.ej. list meals
  show <resource> <id>           un registro del recipient activo
  add <resource> <json>          p.ej. add meals '{"mealType":"lunch"}'
  rm <resource> <id>
  stats                          resumen de hoy
  emergency create <json>        crea la ficha (PIN opcional por -pin)
  emergency show|unlock|lock     unlock usa -pin o -password
  emergency update [<json>]      -pin/-password verifican, -new-pin cambia el PIN ("" lo borra)
  emergency rm                   borra la ficha (-pin o -password)
`

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	server   string
	state    string
	tz       string
	timeout  time.Duration
	password string
	pin      string
	newPIN   *string
	verbose  bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := flag.NewFlagSet("carectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage); fs.PrintDefaults() }
	fs.StringVar(&f.server, "server", envOr("CARECTL_SERVER", "http://localhost:8080"), "base url del API")
	fs.StringVar(&f.state, "state", envOr("CARECTL_STATE", defaultStatePath()), "archivo de estado local")
	fs.StringVar(&f.tz, "tz", os.Getenv("TZ"), "zona horaria IANA para stats")
	fs.DurationVar(&f.timeout, "timeout", 10*time.Second, "timeout por request")
	fs.StringVar(&f.password, "password", os.Getenv("CARECTL_PASSWORD"), "contraseña de la cuenta")
	fs.StringVar(&f.pin, "pin", "", "PIN de la ficha de emergencia")
	newPIN := fs.String("new-pin", "", "PIN nuevo para emergency update")
	fs.BoolVar(&f.verbose, "v", false, "logs de debug")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "new-pin" {
			f.newPIN = newPIN
		}
	})
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	ctx, cancel := context.WithTimeout(context.Background(), 4*f.timeout)
	defer cancel()

	st, closeStore, err := openStorage(ctx, f.state)
	if err != nil {
		log.Error("open state", "error", err)
		return 1
	}
	defer closeStore()

	ws, err := workspace.Open(ctx, workspace.Options{
		BaseURL:  f.server,
		Timeout:  f.timeout,
		Storage:  st,
		TimeZone: f.tz,
	})
	if err != nil {
		log.Error("open workspace", "error", err)
		return 1
	}
	defer ws.Close()

	c := &command{ws: ws, f: f, out: stdout, log: log}
	if err := c.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, ue.Error())
			fs.Usage()
			return 2
		}
		log.Error(fs.Arg(0)+" failed", "error", err)
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }

type command struct {
	ws  *workspace.Workspace
	f   flags
	out io.Writer
	log *slog.Logger
}

func (c *command) run(ctx context.Context, name string, args []string) error {
	// Los comandos por recipient necesitan el directorio para la auto-selección.
	switch name {
	case "register", "login", "logout":
	default:
		if err := c.ws.Refresh(ctx); err != nil {
			return err
		}
	}

	switch name {
	case "register":
		if len(args) != 2 {
			return usageError("register needs <email> <name>")
		}
		u, err := c.ws.Register(ctx, args[0], args[1], c.f.password)
		if err != nil {
			return err
		}
		c.log.Info("registered", "user", u.Email)
		return nil

	case "login":
		if len(args) != 1 {
			return usageError("login needs <email>")
		}
		u, err := c.ws.Login(ctx, args[0], c.f.password)
		if err != nil {
			return err
		}
		c.log.Info("logged in", "user", u.Email)
		return nil

	case "logout":
		return c.ws.Logout(ctx)

	case "recipients":
		return c.recipients(ctx, args)

	case "use":
		if len(args) != 1 {
			return usageError("use needs <id>")
		}
		if err := c.ws.Use(ctx, args[0]); err != nil {
			return err
		}
		c.log.Debug("active care recipient changed", "care_recipient_id", args[0])
		return nil

	case "list":
		if len(args) != 1 {
			return usageError("list needs <resource>")
		}
		recs, err := c.ws.Records(ctx, args[0], api.ListOptions{})
		if err != nil {
			return err
		}
		return c.print(recs)

	case "show":
		if len(args) != 2 {
			return usageError("show needs <resource> <id>")
		}
		rec, err := c.ws.Record(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return c.print(rec)

	case "add":
		if len(args) != 2 {
			return usageError("add needs <resource> <json>")
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
			return usageError("add: payload must be a JSON object")
		}
		rec, err := c.ws.CreateRecord(ctx, args[0], payload)
		if err != nil {
			return err
		}
		return c.print(rec)

	case "rm":
		if len(args) != 2 {
			return usageError("rm needs <resource> <id>")
		}
		return c.ws.DeleteRecord(ctx, args[0], args[1])

	case "stats":
		s, err := c.ws.TodayStats(ctx)
		if err != nil {
			return err
		}
		return c.print(s)

	case "emergency":
		return c.emergency(ctx, args)
	}
	return usageError("unknown command " + name)
}

func (c *command) recipients(ctx context.Context, args []string) error {
	if len(args) == 0 {
		list, _ := c.ws.Session().CareRecipients()
		active, _ := c.ws.Session().ActiveCareRecipientID()
		for _, r := range list {
			mark := " "
			if r.ID == active {
				mark = "*"
			}
			fmt.Fprintf(c.out, "%s %s\t%s\t%s\n", mark, r.ID, r.Name, r.Status)
		}
		return nil
	}

	switch {
	case args[0] == "add" && len(args) == 2:
		r, err := c.ws.CreateRecipient(ctx, args[1])
		if err != nil {
			return err
		}
		return c.print(r)
	case args[0] == "rename" && len(args) == 3:
		r, err := c.ws.RenameRecipient(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		return c.print(r)
	case args[0] == "rm" && len(args) == 2:
		return c.ws.DeleteRecipient(ctx, args[1])
	}
	return usageError("recipients [add <name> | rename <id> <name> | rm <id>]")
}

func (c *command) emergency(ctx context.Context, args []string) error {
	if len(args) == 2 && args[0] == "create" {
		var contents api.EmergencyContents
		if err := json.Unmarshal([]byte(args[1]), &contents); err != nil {
			return usageError("emergency create: contents must be a JSON object")
		}
		info, err := c.ws.CreateEmergencyInfo(ctx, c.f.pin, contents)
		if err != nil {
			return err
		}
		return c.print(info)
	}
	if len(args) >= 1 && args[0] == "update" {
		return c.emergencyUpdate(ctx, args[1:])
	}
	if len(args) != 1 {
		return usageError("emergency create|show|unlock|lock|update|rm")
	}
	switch args[0] {
	case "show":
		info, state, err := c.ws.EmergencyInfo(ctx)
		if err != nil {
			return err
		}
		if state == emergency.StateUnlocked {
			contents, err := c.ws.EmergencyContents(ctx)
			if err == nil {
				return c.print(contents)
			}
			if !errors.Is(err, emergency.ErrRepromptRequired) {
				return err
			}
			c.log.Info("emergency info is unlocked but contents are not loaded; run emergency unlock again")
		}
		return c.print(info)

	case "unlock":
		contents, err := c.ws.RevealEmergencyInfo(ctx, c.credential())
		if err != nil {
			return err
		}
		return c.print(contents)

	case "lock":
		return c.ws.LockEmergencyInfo(ctx)

	case "rm":
		return c.ws.DeleteEmergencyInfo(ctx, c.credential())
	}
	return usageError("emergency create|show|unlock|lock|update|rm")
}

func (c *command) emergencyUpdate(ctx context.Context, args []string) error {
	in := api.EmergencyInfoUpdate{NewPIN: c.f.newPIN}
	switch len(args) {
	case 0:
	case 1:
		var contents api.EmergencyContents
		if err := json.Unmarshal([]byte(args[0]), &contents); err != nil {
			return usageError("emergency update: contents must be a JSON object")
		}
		in.Contents = &contents
	default:
		return usageError("emergency update [<json>]")
	}
	if in.NewPIN == nil && in.Contents == nil {
		return usageError("emergency update needs <json> or -new-pin")
	}
	info, err := c.ws.UpdateEmergencyInfo(ctx, c.credential(), in)
	if err != nil {
		return err
	}
	return c.print(info)
}

func (c *command) credential() emergency.Credential {
	return emergency.Credential{PIN: c.f.pin, Password: c.f.password}
}

func (c *command) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openStorage: Redis si CARECTL_REDIS_ADDR está definido, si no el archivo local.
func openStorage(ctx context.Context, statePath string) (storage.Storage, func(), error) {
	if addr := strings.TrimSpace(os.Getenv("CARECTL_REDIS_ADDR")); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return storage.NewRedis(rdb, envOr("CARECTL_REDIS_PREFIX", "carectl")), func() { _ = rdb.Close() }, nil
	}

	st, err := storage.NewFile(statePath)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "carectl.json"
	}
	return filepath.Join(dir, "caregiver-support", "carectl.json")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
