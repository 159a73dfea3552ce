package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rumbridge/internal/request"
	"rumbridge/internal/transport"
)

type invokeCmd struct {
	Args string `long:"args" description:"arguments as a JSON value, e.g. '{\"userID\":\"u-1\"}'"`
	Pos  struct {
		Method string `positional-arg-name:"method" required:"1"`
	} `positional-args:"yes"`
}

func (c *invokeCmd) Execute([]string) error {
	var args any
	if c.Args != "" {
		if err := json.Unmarshal([]byte(c.Args), &args); err != nil {
			return fmt.Errorf("--args: %w", err)
		}
	}
	cl, err := transport.Dial(global.Addr)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), global.Timeout)
	defer cancel()
	v, err := cl.Invoke(ctx, c.Pos.Method, args)
	if err != nil {
		return err
	}
	return render(os.Stdout, global.Output, v)
}

type listenCmd struct{}

func (c *listenCmd) Execute([]string) error {
	cl, err := transport.Dial(global.Addr)
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = cl.Listen(ctx, func(method string, args any) error {
		return render(os.Stdout, global.Output, map[string]any{"method": method, "arguments": args})
	})
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return err
}

type schemaCmd struct {
	Pos struct {
		Method string `positional-arg-name:"method"`
	} `positional-args:"yes"`
}

func (c *schemaCmd) Execute([]string) error {
	if c.Pos.Method == "" {
		return render(os.Stdout, global.Output, request.Methods())
	}
	s, err := request.Schema(c.Pos.Method)
	if err != nil {
		return err
	}
	return render(os.Stdout, global.Output, s)
}
