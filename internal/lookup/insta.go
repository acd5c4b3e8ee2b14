package lookup

import (
	"context"

	"github.com/tidwall/gjson"

	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

const instaAPI = "insta"

// InstaLookup resolves Instagram usernames into a profile card.
type InstaLookup struct {
	client   *Client
	endpoint string
}

// NewInstaLookup creates a lookup against the endpoint template.
func NewInstaLookup(client *Client, endpoint string) *InstaLookup {
	return &InstaLookup{client: client, endpoint: endpoint}
}

// Lookup fetches the profile with one retry. A profile without a user object
// or profile picture is reported as not found.
func (l *InstaLookup) Lookup(ctx context.Context, username string) (*Result, error) {
	doc, err := l.client.GetJSON(ctx, instaAPI, Expand(l.endpoint, username), 2)
	if err != nil {
		return nil, err
	}

	user := doc.Get("user")
	pic := field(user, "", "profile_pic_url")
	if !user.IsObject() || pic == "" {
		return nil, apperrors.NewNotFoundError(instaAPI)
	}

	return &Result{
		Text:     renderInsta(user, doc.Get("last_post")),
		PhotoURL: pic,
	}, nil
}

func renderInsta(user, post gjson.Result) string {
	profile := renderLines("📸 Instagram Profile Info:", []line{
		{"👤 Username", field(user, NA, "username")},
		{"📛 Full Name", field(user, NA, "full_name")},
		{"👥 Followers", field(user, NA, "followers")},
		{"➡️ Following", field(user, NA, "following")},
		{"📝 Posts", field(user, NA, "posts")},
		{"🔵 Verified", flag(user, "verified")},
		{"🔐 Private", flag(user, "private")},
		{"🏢 Business", flag(user, "business_account")},
		{"🧬 Bio", truncateRunes(field(user, NA, "bio"), maxBioRunes)},
	}, "")

	if !post.IsObject() || len(post.Map()) == 0 {
		return profile + "\n\n<b>🕸️ Last Post Info:</b>\n<i>No posts available</i>"
	}

	return profile + "\n\n" + renderLines("🕸️ Last Post Info:", []line{
		{"🆔 Post ID", field(post, NA, "id")},
		{"🔗 Shortcode", field(post, NA, "shortcode")},
		{"❤️ Likes", field(post, NA, "likes")},
		{"💬 Comments", field(post, NA, "comments")},
		{"👁️ Views", field(post, "0", "views")},
	}, "")
}
