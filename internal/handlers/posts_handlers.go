package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast-api/internal/client/neynar"
)

// PostsHandler serves the social feed.
type PostsHandler struct {
	feed *neynar.Client
}

func NewPostsHandler(feed *neynar.Client) *PostsHandler {
	return &PostsHandler{feed: feed}
}

// Post is one feed entry in the shape the tipping client consumes.
type Post struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embeds    []neynar.Embed `json:"embeds"`
	Timestamp string         `json:"timestamp"`
	Author    neynar.Author  `json:"author"`
	Reactions interface{}    `json:"reactions"`
	Replies   interface{}    `json:"replies"`
}

// PostsResponse is one page of the feed.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Next  string `json:"next,omitempty"`
}

func castToPost(cast neynar.Cast) Post {
	return Post{
		ID:        cast.Hash,
		Text:      cast.Text,
		Embeds:    cast.Embeds,
		Timestamp: cast.Timestamp,
		Author:    cast.Author,
		Reactions: cast.Reactions,
		Replies:   cast.Replies,
	}
}

// GetPosts godoc
// @Summary      Get trending posts
// @Description  Returns one page of the globally trending feed
// @Tags         posts
// @Produce      json
// @Success      200  {object}  PostsResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/posts [get]
func (h *PostsHandler) GetPosts(c *gin.Context) {
	casts, next, err := h.feed.TrendingFeed(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	posts := make([]Post, 0, len(casts))
	for _, cast := range casts {
		posts = append(posts, castToPost(cast))
	}
	sendSuccess(c, http.StatusOK, PostsResponse{Posts: posts, Next: next})
}
