package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/urcuisine/urcuisine/interaction"
	"github.com/urcuisine/urcuisine/post"
)

type commentOutput struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type postOutput struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Country     string          `json:"country,omitempty"`
	Description string          `json:"description,omitempty"`
	Likes       uint64          `json:"likes"`
	Dislikes    uint64          `json:"dislikes"`
	Liked       bool            `json:"liked"`
	Disliked    bool            `json:"disliked"`
	Comments    []commentOutput `json:"comments"`
}

func newPostOutput(d post.Detail, s interaction.State, thread *post.Thread) postOutput {
	out := postOutput{
		ID:          d.Post.ID,
		Title:       d.Post.Title,
		Country:     d.Post.Country,
		Description: d.Post.Description,
		Likes:       s.Likes,
		Dislikes:    s.Dislikes,
		Liked:       s.Liked,
		Disliked:    s.Disliked,
		Comments:    []commentOutput{},
	}
	for _, c := range thread.Comments() {
		out.Comments = append(out.Comments, commentOutput{ID: c.ID, Author: c.Author, Text: c.Text, CreatedAt: c.CreatedAt})
	}
	return out
}

func printHumanPost(w io.Writer, p postOutput) {
	fmt.Fprintf(w, "%s [%s]\n", p.Title, p.ID)
	if p.Country != "" {
		fmt.Fprintf(w, "Country: %s\n", p.Country)
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
	fmt.Fprintf(w, "\n%s\n", reactionLine(p.Likes, p.Dislikes, p.Liked, p.Disliked))

	fmt.Fprintf(w, "\nComments (%d):\n", len(p.Comments))
	for _, c := range p.Comments {
		fmt.Fprintf(w, "  %s, %s: %s\n", c.Author, c.CreatedAt.Format(time.DateTime), c.Text)
	}
}

func printJSONPost(w io.Writer, p postOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func reactionLine(likes, dislikes uint64, liked, disliked bool) string {
	line := fmt.Sprintf("Likes: %d  Dislikes: %d", likes, dislikes)
	switch {
	case liked:
		line += "  (you like this)"
	case disliked:
		line += "  (you dislike this)"
	}
	return line
}

// loadPost restores the session, fetches the post and seeds the reconciler.
func (a *app) loadPost(ctx context.Context, postID string) (post.Detail, error) {
	a.sessions.Start(ctx)
	d, err := a.client.Post(ctx, postID)
	if err != nil {
		return post.Detail{}, err
	}
	a.reacts.Seed(postID, interaction.Seed(d))
	return d, nil
}

func showCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with its reactions and comments",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			d, err := a.loadPost(ctx, args[0])
			if err != nil {
				return err
			}
			s, _ := a.reacts.State(args[0])
			out := newPostOutput(d, s, post.NewThread(args[0], d.Post.Comments))
			if jsonOutput {
				return printJSONPost(cmd.OutOrStdout(), out)
			}
			printHumanPost(cmd.OutOrStdout(), out)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the post as JSON")
	return cmd
}

func reactCmd(g *globalOptions, name string) *cobra.Command {
	kind := interaction.Like
	if name == "dislike" {
		kind = interaction.Dislike
	}
	return &cobra.Command{
		Use:   name + " <post-id>",
		Short: "Toggle your " + name + " on a post",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			postID := args[0]
			if _, err := a.loadPost(ctx, postID); err != nil {
				return err
			}
			defer a.reacts.Discard(postID)

			s, err := a.reacts.Toggle(ctx, a.sessions.Session(), kind, postID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reactionLine(s.Likes, s.Dislikes, s.Liked, s.Disliked))
			return nil
		}),
	}
}

func commentCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text>...",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: runWithApp(g, func(ctx context.Context, cmd *cobra.Command, args []string, a *app) error {
			postID := args[0]
			d, err := a.loadPost(ctx, postID)
			if err != nil {
				return err
			}
			thread := post.NewThread(postID, d.Post.Comments)
			c, err := a.comments.Submit(ctx, a.sessions.Session(), thread, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment added (%d on this post)\n  %s: %s\n", thread.Len(), c.Author, c.Text)
			return nil
		}),
	}
}
