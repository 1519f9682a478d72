/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blacktop/mdpost/internal/logutil"
	"github.com/blacktop/mdpost/internal/mdpost"
	"github.com/blacktop/mdpost/internal/mdpost/tumblr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	fileFlag        string
	titleFlag       string
	descriptionFlag string
	imageURLFlag    string
	altTextFlag     string
	linkFlag        string
	hashtagsFlag    string
	stateFlag       string
	envFileFlag     string
	dryRun          bool
	verifyCreds     bool
	verbose         bool
)

const defaultEnvFile = ".env"

// Execute runs the root command.
func Execute() error {
	cmd := newRootCommand()
	cmd.SetArgs(normalizeArgs(os.Args[1:]))
	return cmd.Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdpost",
		Short: "Publish a markdown document as a Tumblr text post",
		Long: "mdpost turns a markdown document (title line, #hashtag line, body) or a set of flags " +
			"into a Tumblr text post with an inline image, link and tags.\n\n" +
			"A live run needs " + tumblr.EnvConsumerKey + ", " + tumblr.EnvConsumerSecret + ", " +
			tumblr.EnvOAuthToken + ", " + tumblr.EnvOAuthTokenSecret + " and " + tumblr.EnvBlogName +
			" in the environment or in a .env file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
		Example: `  mdpost --file post.md
  mdpost --file post.md --dry-run
  mdpost --title "My Post" --description "This is content" \
         --image-url https://example.com/image.jpg --alt-text "Image description" \
         --link https://example.com -ht "tag1,tag2,tag3"
  cat post.md | mdpost --file -`,
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Markdown file containing the post (- for stdin)")
	cmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Post title")
	cmd.Flags().StringVarP(&descriptionFlag, "description", "d", "", "Post body (markdown)")
	cmd.Flags().StringVarP(&imageURLFlag, "image-url", "i", "", "URL of an inline image")
	cmd.Flags().StringVarP(&altTextFlag, "alt-text", "a", "", "Alternative text describing the image")
	cmd.Flags().StringVarP(&linkFlag, "link", "l", "", "Main link URL")
	cmd.Flags().StringVar(&hashtagsFlag, "hashtags", "", "Comma-separated hashtags (alias -ht)")
	cmd.Flags().StringVar(&stateFlag, "state", mdpost.StatePublished, "Post state (published, draft, queue, private)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be posted without posting")
	cmd.Flags().BoolVar(&verifyCreds, "verify", false, "Check the credentials against the API before posting")
	cmd.Flags().StringVar(&envFileFlag, "env-file", defaultEnvFile, "Load environment variables from this file when it exists")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().SortFlags = false
	cmd.MarkFlagsMutuallyExclusive("file", "description")

	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logutil.SetVerbose(verbose || os.Getenv("LOUD") == "1")

	if err := loadEnvFile(envFileFlag, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	var cfg tumblr.Config
	if !dryRun {
		var err error
		if cfg, err = tumblr.LoadConfigFromEnv(); err != nil {
			return err
		}
	}

	opts := currentOptions()
	if err := opts.Validate(); err != nil {
		return err
	}

	post, err := buildPost(opts, cmd.InOrStdin())
	if err != nil {
		return err
	}
	payload := mdpost.Assemble(post, opts.State)

	if dryRun {
		return preview(cmd.OutOrStdout(), payload)
	}

	client, err := tumblr.New(ctx, cfg)
	if err != nil {
		return err
	}

	if verifyCreds {
		name, err := client.Verify(ctx)
		if err != nil {
			return err
		}
		logutil.Infof("authenticated as %s, posting to %s", name, client.Blog())
	}

	return publish(ctx, client, payload, cmd.OutOrStdout())
}

func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	logutil.Debugf("loaded environment from %s", path)
	return nil
}

func publish(ctx context.Context, publisher mdpost.Publisher, payload mdpost.Payload, out io.Writer) error {
	logutil.Debugf("posting to %s: title=%q tags=%v body_len=%d", publisher.Name(), payload.Title, payload.Tags, len(payload.Body))

	res, err := publisher.Publish(ctx, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", publisher.Name(), err)
	}

	fmt.Fprintf(out, "posted to %s: id=%s url=%s\n", publisher.Name(), res.ID, res.URL)
	return nil
}
