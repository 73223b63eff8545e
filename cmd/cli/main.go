package main

import (
	"bufio"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/config"
	"github.com/cpike5/discordbot-sub011/internal/datalayer"
	"github.com/cpike5/discordbot-sub011/internal/generator"
	"github.com/cpike5/discordbot-sub011/internal/repository"
	"github.com/cpike5/discordbot-sub011/internal/transcode"
	"github.com/cpike5/discordbot-sub011/internal/vox"
)

var stdinReader = bufio.NewReader(os.Stdin)

var uuidGenerator = generator.UUIDV4Generator{}

func prompt(label string) string {
	fmt.Printf("%s: ", label)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

func newFFmpeg() (*transcode.FFmpeg, error) {
	cfg, err := config.NewAudioConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return &transcode.FFmpeg{Path: cfg.FFmpegPath, Timeout: cfg.FFmpegTimeout}, nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "soundboard-cli",
		Description: "A development CLI tool for exercising the soundboard without Discord",
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "Apply filters to a local audio file and write the processed blob",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Input audio file", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Output blob file", Required: true},
					&cli.Float64Flag{Name: "pitch", Usage: "Pitch multiplier, 0.5 to 2.0"},
					&cli.BoolFlag{Name: "echo", Usage: "Add an echo effect"},
					&cli.BoolFlag{Name: "distort", Usage: "Add distortion"},
				},
				Action: func(c *cli.Context) error {
					spec := audio.FilterSpec{
						Pitch:   c.Float64("pitch"),
						Echo:    c.Bool("echo"),
						Distort: c.Bool("distort"),
					}
					if err := spec.Validate(); err != nil {
						return cli.Exit(err.Error(), 1)
					}

					ffmpeg, err := newFFmpeg()
					if err != nil {
						return cli.Exit("Failed to load audio config: "+err.Error(), 1)
					}

					blob, err := ffmpeg.Transcode(c.Context, c.String("in"), spec.Args())
					if err != nil {
						return cli.Exit("Failed to render: "+err.Error(), 1)
					}
					if err := os.WriteFile(c.String("out"), blob, 0o644); err != nil {
						return cli.Exit("Failed to write output: "+err.Error(), 1)
					}

					log.Printf("Wrote %d bytes to %s", len(blob), c.String("out"))
					return nil
				},
			},
			{
				Name:  "vox",
				Usage: "Synthesize a message from a clip root and write the blob",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Clip root directory", Required: true},
					&cli.StringFlag{Name: "group", Usage: "Clip group", Value: "vox"},
					&cli.IntFlag{Name: "gap", Usage: "Silence between words in milliseconds", Value: -1},
					&cli.StringFlag{Name: "out", Usage: "Output blob file", Required: true},
				},
				Action: func(c *cli.Context) error {
					message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
					if message == "" {
						message = prompt("Enter message")
					}

					library := vox.NewLibrary(c.String("root"))
					if err := library.Scan(); err != nil {
						return cli.Exit("Failed to scan clip root: "+err.Error(), 1)
					}

					cache, err := audio.NewCache(64<<20, "", nil)
					if err != nil {
						return cli.Exit("Failed to create cache: "+err.Error(), 1)
					}
					ffmpeg, err := newFFmpeg()
					if err != nil {
						return cli.Exit("Failed to load audio config: "+err.Error(), 1)
					}
					concatenator := vox.NewConcatenator(library, cache, ffmpeg, 60*time.Millisecond, 2*time.Second)

					gap := time.Duration(c.Int("gap")) * time.Millisecond
					lease, err := concatenator.Synthesize(c.Context, c.String("group"), message, gap)
					if err != nil {
						return cli.Exit("Failed to synthesize: "+err.Error(), 1)
					}
					defer lease.Release()

					if err := os.WriteFile(c.String("out"), lease.Bytes(), 0o644); err != nil {
						return cli.Exit("Failed to write output: "+err.Error(), 1)
					}

					log.Printf("Wrote %d bytes to %s", len(lease.Bytes()), c.String("out"))
					return nil
				},
			},
			{
				Name:  "clips",
				Usage: "Scan a clip root and list its groups and words",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Clip root directory", Required: true},
				},
				Action: func(c *cli.Context) error {
					library := vox.NewLibrary(c.String("root"))
					if err := library.Scan(); err != nil {
						return cli.Exit("Failed to scan clip root: "+err.Error(), 1)
					}

					groups := library.Groups()
					if len(groups) == 0 {
						log.Println("No clip groups found.")
						return nil
					}
					for _, group := range groups {
						words := library.Words(group)
						log.Printf("%s: %d words", group, len(words))
						log.Printf("  %s", strings.Join(words, " "))
					}
					return nil
				},
			},
			{
				Name:  "add-sound",
				Usage: "Upload a local file and register it as a guild sound without Discord",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to add the sound for",
						Required: true,
					},
					&cli.StringFlag{Name: "file", Usage: "Local audio file", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Sound name, defaults to the file name"},
				},
				Action: func(c *cli.Context) error {
					pool, err := datalayer.NewPostgresPoolFromEnv(c.Context)
					if err != nil {
						return cli.Exit("Failed to create postgres pool: "+err.Error(), 1)
					}
					defer pool.Close()
					if err := datalayer.MigratePostgres(pool); err != nil {
						return cli.Exit("Failed to migrate postgres: "+err.Error(), 1)
					}
					storage, err := datalayer.NewMinioStorageFromEnv()
					if err != nil {
						return cli.Exit("Failed to create minio storage: "+err.Error(), 1)
					}
					if err := storage.EnsureBucket(c.Context); err != nil {
						return cli.Exit("Failed to ensure minio bucket: "+err.Error(), 1)
					}
					repo := repository.NewPostgresSoundRepository(pool)

					path := c.String("file")
					f, err := os.Open(path)
					if err != nil {
						return cli.Exit("Failed to open file: "+err.Error(), 1)
					}
					defer f.Close()
					info, err := f.Stat()
					if err != nil {
						return cli.Exit("Failed to stat file: "+err.Error(), 1)
					}

					name := c.String("name")
					if name == "" {
						name = prompt("Enter sound name")
					}
					if name == "" {
						base := filepath.Base(path)
						name = strings.TrimSuffix(base, filepath.Ext(base))
					}

					id, _ := uuidGenerator.Next()
					key := "sounds/" + id
					if err := storage.Put(c.Context, key, f, datalayer.PutOptions{Size: info.Size()}); err != nil {
						return cli.Exit("Failed to upload file: "+err.Error(), 1)
					}

					sound := repository.Sound{
						ID:        id,
						GuildID:   c.String("guild-id"),
						Name:      name,
						ObjectKey: key,
						FileSize:  info.Size(),
					}
					if err := repo.Save(c.Context, sound); err != nil {
						slog.Warn("Removing uploaded blob after failed save", "key", key)
						if removeErr := storage.Remove(c.Context, key); removeErr != nil {
							slog.Error("Failed to remove blob", "key", key, "error", removeErr)
						}
						return cli.Exit("Failed to save sound: "+err.Error(), 1)
					}

					log.Println("Sound added successfully.")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
