package main

import (
	"fmt"

	"mutari/internal/utils"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:    "nanoid",
	Aliases: []string{"id"},
	Usage:   "Generate NanoIDs for use in seed files",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.BoolFlag{
			Name:  "code",
			Usage: "Generate customer-facing request codes instead",
		},
	},
	Action: func(c *cli.Context) error {
		generate := utils.NanoID
		if c.Bool("code") {
			generate = utils.RequestCode
		}

		count := c.Int("count")
		for range count {
			fmt.Println(generate())
		}
		return nil
	},
}
