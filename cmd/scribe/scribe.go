package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/viper"

	"example.com/mediascribe/internal/client"
)

const usage = `usage: scribe <command> [flags]

commands:
  register    create an account
  login       print an access token
  upload      upload a media file
  list        list uploaded files
  transcribe  transcribe an uploaded file or a local one
  summarize   summarize text or a local file
`

type Config struct {
	API      string `mapstructure:"api"`
	UserName string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Email    string `mapstructure:"email"`
	Token    string `mapstructure:"token"`
}

// LoadConfiguration reads file when it exists and lets SCRIBE_* variables
// override it.
func LoadConfiguration(file string) (Config, error) {
	v := viper.New()
	v.SetDefault("api", "http://localhost:8000")
	for _, k := range []string{"username", "password", "email", "token"} {
		v.SetDefault(k, "")
	}
	v.SetEnvPrefix("scribe")
	v.AutomaticEnv()

	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configFile := fs.String("config", "configuration.json", "client configuration file")
	fileName := fs.String("file", "", "local file")
	fileURL := fs.String("url", "", "URL of an uploaded file")
	medical := fs.Bool("medical", false, "use medical transcription")
	text := fs.String("text", "", "text to summarize")
	switch cmd {
	case "register", "login", "upload", "list", "transcribe", "summarize":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("%q is not a valid command", cmd)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfiguration(*configFile)
	if err != nil {
		return err
	}
	c := client.New(cfg.API, nil)

	switch cmd {
	case "register":
		if err := c.Register(ctx, cfg.UserName, cfg.Password, cfg.Email); err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %s\n", cfg.UserName)
		return nil
	case "login":
		token, err := c.Login(ctx, cfg.UserName, cfg.Password)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, token)
		return nil
	}

	if c, err = authenticate(ctx, c, cfg); err != nil {
		return err
	}
	switch cmd {
	case "upload":
		if *fileName == "" {
			return errors.New("upload: -file is required")
		}
		u, err := c.Upload(ctx, *fileName)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, u)
	case "list":
		files, err := c.ListFiles(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED\tURL")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Key, f.Size, f.LastModified, f.FileURL)
		}
		return tw.Flush()
	case "transcribe":
		u := *fileURL
		if u == "" && *fileName != "" {
			if u, err = c.Upload(ctx, *fileName); err != nil {
				return err
			}
		}
		if u == "" {
			return errors.New("transcribe: -url or -file is required")
		}
		doc, err := c.Transcribe(ctx, u, *medical)
		if err != nil {
			return err
		}
		return printTranscript(out, doc)
	case "summarize":
		var summary string
		switch {
		case *fileName != "":
			summary, err = c.SummarizeFile(ctx, *fileName)
		case *text != "":
			summary, err = c.Summarize(ctx, *text)
		default:
			return errors.New("summarize: -text or -file is required")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, summary)
	}
	return nil
}

func authenticate(ctx context.Context, c *client.Client, cfg Config) (*client.Client, error) {
	if cfg.Token != "" {
		return c.WithToken(cfg.Token), nil
	}
	token, err := c.Login(ctx, cfg.UserName, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c.WithToken(token), nil
}

// printTranscript prints the transcript text when the document has the
// usual Transcribe shape and the whole document otherwise.
func printTranscript(out io.Writer, doc json.RawMessage) error {
	var t struct {
		Results struct {
			Transcripts []struct {
				Transcript string `json:"transcript"`
			} `json:"transcripts"`
		} `json:"results"`
	}
	if err := json.Unmarshal(doc, &t); err == nil && len(t.Results.Transcripts) > 0 {
		for _, tr := range t.Results.Transcripts {
			fmt.Fprintln(out, tr.Transcript)
		}
		return nil
	}
	_, err := fmt.Fprintln(out, string(doc))
	return err
}
