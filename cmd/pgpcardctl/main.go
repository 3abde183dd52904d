/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/nydus-snapshotter/openpgp-card/config"
	"github.com/nydus-snapshotter/openpgp-card/internal/log"
	"github.com/nydus-snapshotter/openpgp-card/pkg/apdu"
	"github.com/nydus-snapshotter/openpgp-card/pkg/card"
	"github.com/nydus-snapshotter/openpgp-card/pkg/transport/pcsc"
)

var (
	// Version is stamped at build time via -ldflags.
	Version = "dev"
)

func main() {
	app := &cli.App{
		Name:        "pgpcardctl",
		Usage:       "inspect and drive an OpenPGP smartcard",
		Version:     Version,
		HideVersion: false,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a TOML configuration file"},
			&cli.StringFlag{Name: "reader", Usage: "substring match against the PC/SC reader name, overriding config"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "logrus level name"},
		},
		Before: func(c *cli.Context) error {
			return log.SetUp(c.String("log-level"), true, "")
		},
		Commands: []*cli.Command{
			listReadersCommand,
			listFilesCommand,
			catCommand,
			pubkeyCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if reader := c.String("reader"); reader != "" {
			cfg.ReaderFilter = reader
		}
		return cfg, nil
	}
	cfg := config.Default()
	cfg.ReaderFilter = c.String("reader")
	return cfg, nil
}

// openCard establishes a PC/SC connection matching cfg.ReaderFilter,
// constructs a card.Card, and runs Init against it.
func openCard(cfg *config.Config) (*card.Card, *pcsc.Reader, error) {
	names, err := pcsc.ListReaders()
	if err != nil {
		return nil, nil, err
	}
	var chosen string
	for _, n := range names {
		if cfg.ReaderFilter == "" || strings.Contains(n, cfg.ReaderFilter) {
			chosen = n
			break
		}
	}
	if chosen == "" {
		return nil, nil, errors.New("no matching PC/SC reader found")
	}

	reader, atr, err := pcsc.Connect(chosen)
	if err != nil {
		return nil, nil, err
	}

	c := card.New(reader)
	ctx := log.WithContext()
	if _, err := c.Init(ctx, atr, func(aid []byte) ([]byte, error) {
		resp, err := reader.Transmit(selectApplicationCommand(aid))
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	}); err != nil {
		reader.Close()
		return nil, nil, err
	}
	return c, reader, nil
}

var listReadersCommand = &cli.Command{
	Name:  "readers",
	Usage: "list PC/SC reader names",
	Action: func(*cli.Context) error {
		names, err := pcsc.ListReaders()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var listFilesCommand = &cli.Command{
	Name:  "list",
	Usage: "list the OpenPGP Data Objects visible at the current selection",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dev, reader, err := openCard(cfg)
		if err != nil {
			return err
		}
		defer reader.Close()
		defer dev.Finish(log.WithContext())

		buf := make([]byte, 4096)
		n, err := dev.ListFiles(log.WithContext(), buf)
		if err != nil {
			return err
		}
		for i := 0; i+1 < n; i += 2 {
			fmt.Printf("%02X%02X\n", buf[i], buf[i+1])
		}
		return nil
	},
}

var catCommand = &cli.Command{
	Name:      "cat",
	Usage:     "select a Data Object by its ID path and print its bytes as hex",
	ArgsUsage: "<id>[/<id>...]",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return errors.New("expected exactly one ID path argument")
		}
		ids, err := parseIDPath(c.Args().First())
		if err != nil {
			return err
		}

		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dev, reader, err := openCard(cfg)
		if err != nil {
			return err
		}
		defer reader.Close()
		defer dev.Finish(log.WithContext())

		ctx := log.WithContext()
		if _, err := dev.SelectPath(ctx, ids); err != nil {
			return err
		}
		out, err := dev.ReadBinary(ctx, 0, 1<<20)
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(out))
		return nil
	},
}

var pubkeyCommand = &cli.Command{
	Name:      "pubkey",
	Usage:     "export a key slot's public key as PEM",
	ArgsUsage: "<sign|decrypt|auth>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return errors.New("expected exactly one key slot argument")
		}
		slot, err := parseKeySlot(c.Args().First())
		if err != nil {
			return err
		}

		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dev, reader, err := openCard(cfg)
		if err != nil {
			return err
		}
		defer reader.Close()
		defer dev.Finish(log.WithContext())

		pem, err := dev.ExportPublicKey(log.WithContext(), slot)
		if err != nil {
			return err
		}
		fmt.Print(string(pem))
		return nil
	},
}

func parseIDPath(s string) ([]uint16, error) {
	parts := strings.Split(s, "/")
	ids := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ID %q", p)
		}
		ids = append(ids, uint16(v))
	}
	return ids, nil
}

func parseKeySlot(s string) (card.KeySlot, error) {
	switch s {
	case "sign":
		return card.KeySlotSign, nil
	case "decrypt":
		return card.KeySlotDecrypt, nil
	case "auth":
		return card.KeySlotAuth, nil
	default:
		return 0, errors.Errorf("unknown key slot %q", s)
	}
}

// selectApplicationCommand builds the SELECT FILE APDU (CLA=00,
// INS=A4, P1=04 "select by DF name", P2=0C) carrying aid as data.
func selectApplicationCommand(aid []byte) apdu.Command {
	return apdu.Command{CLA: 0x00, INS: 0xA4, P1: 0x04, P2: 0x0C, Data: aid, Le: 256}
}
