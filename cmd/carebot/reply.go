package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zhouzirui/memory-companion/backend/internal/analysis/emotion"
)

func newReplyCmd(f *flags) *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "Generate one reply for the given text and print it with its emotion",
		UsageText: "carebot reply <text>",
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return errors.New("reply: text is required")
			}

			generator, err := newGenerator(ctx, f.Config.AI)
			if err != nil {
				return fmt.Errorf("init reply generator: %w", err)
			}

			reply := generator.Generate(ctx, text)
			out := c.Root().Writer
			_, _ = fmt.Fprintf(out, "reply:   %s\n", reply)
			_, _ = fmt.Fprintf(out, "emotion: %q\n", string(emotion.Tag(reply)))
			return nil
		},
	}
}
