// Package sh provides an interactive shell talking to a device port.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/serialbridge/pkg/host"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell   *ishell.Shell
	Session *Session
}

const (
	shellKey     = "$shell"
	closedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	openPort   string

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
		&HandshakeCmd,
		&HelloCmd,
		&ReadyCmd,
		&WhoiamCmd,
		&InitCmd,
		&StartCmd,
		&StopCmd,
		&SendCmd,
		&ReadCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print records in JSON.")
	flag.StringVar(&openPort, "open", openPort, "Serial port to open on start.")
}

// AddCmds adds more commands, used during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(session *Session) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:   ishell.New(),
		Session: session,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requiring an open port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session.Port == nil {
			c.Err(ErrNotOpen)
			return
		}
		fn(c)
	}
}

// Open opens a port and updates the prompt.
func (s *Shell) Open(addr string) error {
	if err := s.Session.OpenPort(addr); err != nil {
		return err
	}
	s.Shell.SetPrompt(addr + " > ")
	return nil
}

// Close closes the port and updates the prompt.
func (s *Shell) Close() error {
	s.Shell.SetPrompt(closedPrompt)
	return s.Session.Close()
}

// PrintItems prints packets read.
func (s *Shell) PrintItems(c *ishell.Context, items []Item) {
	for _, item := range items {
		switch {
		case item.Err != nil:
			c.Printf("%q: %v\n", item.Packet, item.Err)
		case item.Record != nil && s.OutputJSON:
			out, err := json.Marshal(item.Record)
			if err != nil {
				c.Err(err)
				continue
			}
			c.Println(string(out))
		case item.Record != nil:
			c.Println(item.Record.String())
		case item.Tick != nil:
			if !s.OutputJSON {
				c.Printf("tick #%d %d:%d\n", item.Tick.Sequence, item.Tick.Overflows, item.Tick.Elapsed)
			}
		default:
			c.Printf("%q\n", item.Packet)
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if openPort != "" {
		if err := s.Open(openPort); err != nil {
			log.Fatalf("open %s failed: %v", openPort, err)
		}
	}
	defer s.Session.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func askCmd(name string, cmd byte, help string) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: help,
		Func: MustBeOpen(func(c *ishell.Context) {
			payload, err := ShellFrom(c).Session.Ask(context.Background(), cmd)
			if err != nil {
				c.Err(err)
				return
			}
			if payload == "" {
				c.Println("OK")
				return
			}
			c.Printf("%q\n", payload)
		}),
	}
}

var (
	// PortsCmd lists USB serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list USB serial ports",
		Func: func(c *ishell.Context) {
			addrs, err := ShellFrom(c).Session.List()
			if err != nil {
				c.Err(err)
				return
			}
			if len(addrs) == 0 {
				c.Println("No ports found")
				return
			}
			for _, addr := range addrs {
				c.Println(addr)
			}
		},
	}

	// OpenCmd opens a port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PORT required"))
				return
			}
			if err := ShellFrom(c).Open(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "close the port",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// HandshakeCmd runs the full handshake.
	HandshakeCmd = ishell.Cmd{
		Name:    "handshake",
		Aliases: []string{"hs"},
		Help:    "hello, ready, identity and init",
		Func: MustBeOpen(func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Session.Handshake(context.Background()); err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s init %q\n", s.Session.Port.Whoiam, s.Session.Port.InitPacket)
		}),
	}

	// HelloCmd asks hello.
	HelloCmd = askCmd("hello", wire.CmdHello, "ask hello")
	// ReadyCmd asks ready.
	ReadyCmd = askCmd("ready", wire.CmdReady, "ask ready")
	// WhoiamCmd asks the device identity.
	WhoiamCmd = askCmd("whoiam", wire.CmdIdentity, "ask the device identity")
	// InitCmd asks the init payload.
	InitCmd = askCmd("init", wire.CmdInit, "ask the init payload")

	// StartCmd starts the device.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "start the device with the wall clock",
		Func: MustBeOpen(func(c *ishell.Context) {
			if err := ShellFrom(c).Session.Start(); err != nil {
				c.Err(err)
			}
		}),
	}

	// StopCmd stops the device.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "stop the device",
		Func: MustBeOpen(func(c *ishell.Context) {
			if err := ShellFrom(c).Session.Stop(); err != nil {
				c.Err(err)
			}
		}),
	}

	// SendCmd sends a raw line.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "LINE...",
		Func: MustBeOpen(func(c *ishell.Context) {
			if err := ShellFrom(c).Session.Send(strings.Join(c.Args, " ")); err != nil {
				c.Err(err)
			}
		}),
	}

	// ReadCmd reads packets for a while.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[DURATION]",
		Func: MustBeOpen(func(c *ishell.Context) {
			duration := time.Second
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("Invalid DURATION: %v", err))
					return
				}
				duration = d
			}
			s := ShellFrom(c)
			items, err := s.Session.Read(context.Background(), duration)
			s.PrintItems(c, items)
			if err != nil {
				c.Err(err)
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewSession(host.NewConfig())).Run(flag.Args()...)
}
