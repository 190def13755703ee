package comments

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/njyeung/sprunki/backend"
)

// Actions carried in data-action attributes. A page dispatches clicks on
// anything with data-action through one delegated handler.
const (
	ActionLike         = "like"
	ActionReply        = "reply"
	ActionReplyToReply = "reply-to-reply"
	ActionCloseForm    = "close-form"
	ActionLoadMore     = "load-more"
	ActionSort         = "sort"
)

const emptyListText = "No comments yet. Be the first to share your thoughts!"

// RenderHTML renders the comment list markup
func RenderHTML(views []CommentView) string {
	return Render(CommentList(views))
}

// CommentList builds the list element
func CommentList(views []CommentView) *Element {
	list := El("div", A("class", "comment-list", "id", "comments-list"))
	if len(views) == 0 {
		return list.Append(El("p", A("class", "no-comments"), Text(emptyListText)))
	}
	for _, v := range views {
		list.Append(commentNode(v))
	}
	return list
}

func commentNode(v CommentView) *Element {
	item := El("div", A("class", "comment-item", "data-comment-id", v.ID))

	item.Append(El("div", A("class", "comment-header"),
		El("span", A("class", "comment-avatar"), Text(v.Initial)),
		El("strong", A("class", "comment-author"), Text(v.Author)),
		El("span", A("class", "comment-rating", "data-rating", strconv.Itoa(v.Rating)), Text(Stars(v.Rating))),
		El("span", A("class", "comment-time"), Text(v.Ago)),
	))
	item.Append(El("p", A("class", "comment-content"), Text(v.Body)))
	item.Append(El("div", A("class", "comment-actions"),
		likeButton(v.ID, "", v.Likes, v.Liked),
		El("button", A("type", "button", "class", "reply-btn", "data-action", ActionReply, "data-comment-id", v.ID), Text("Reply")),
	))

	if len(v.Replies) > 0 {
		replies := El("div", A("class", "replies"))
		for _, r := range v.Replies {
			replies.Append(replyNode(r))
		}
		item.Append(replies)
	}
	return item
}

func replyNode(v ReplyView) *Element {
	depth := strconv.Itoa(v.Depth)
	item := El("div", A(
		"class", "reply-item level-"+depth,
		"data-comment-id", v.CommentID,
		"data-reply-id", v.ID,
		"data-depth", depth,
	))

	item.Append(El("div", A("class", "reply-header"),
		El("span", A("class", "reply-avatar"), Text(v.Initial)),
		El("strong", A("class", "reply-author"), Text(v.Author)),
		El("span", A("class", "reply-time"), Text(v.Ago)),
	))

	content := El("p", A("class", "reply-content"))
	if v.Mention != "" {
		content.Append(El("span", A("class", "reply-mention"), Text("@"+v.Mention)), Text(" "))
	}
	content.Append(Text(v.Body))
	item.Append(content)

	actions := El("div", A("class", "reply-actions"), likeButton(v.CommentID, v.ID, v.Likes, v.Liked))
	if v.CanReply {
		actions.Append(El("button", A(
			"type", "button",
			"class", "reply-btn",
			"data-action", ActionReplyToReply,
			"data-comment-id", v.CommentID,
			"data-reply-id", v.ID,
			"data-depth", depth,
		), Text("Reply")))
	}
	item.Append(actions)

	if len(v.Children) > 0 {
		children := El("div", A("class", "reply-children"))
		for _, child := range v.Children {
			children.Append(replyNode(child))
		}
		item.Append(children)
	}
	return item
}

func likeButton(commentID, replyID string, likes int, liked bool) *Element {
	class := "like-btn"
	if liked {
		class += " liked"
	}
	attrs := A("type", "button", "class", class, "data-action", ActionLike, "data-comment-id", commentID)
	if replyID != "" {
		attrs = append(attrs, Attr{Key: "data-reply-id", Value: replyID})
	}
	if liked {
		attrs = append(attrs, Attr{Key: "disabled", Bool: true})
	}
	return El("button", attrs,
		Text("👍 "),
		El("span", A("class", "like-count"), Text(strconv.Itoa(likes))),
	)
}

// Stars renders a 1–5 rating
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("⭐", rating)
}

// RenderStats renders the rating summary: total, average and a 5→1 distribution
func RenderStats(s *backend.Stats) string {
	if s == nil {
		return ""
	}
	summary := El("div", A("class", "stats-summary"),
		El("div", A("class", "stat-item"),
			El("span", A("class", "stat-number", "id", "total-comments"), Text(strconv.Itoa(s.TotalComments))),
			El("span", A("class", "stat-label"), Text("comments")),
		),
		El("div", A("class", "stat-item"),
			El("span", A("class", "stat-number", "id", "average-rating"), Text(fmt.Sprintf("%.1f", s.AverageRating))),
			El("span", A("class", "stat-label"), Text("average "+Stars(int(math.Round(s.AverageRating))))),
		),
	)

	dist := El("div", A("class", "rating-distribution"))
	for rating := 5; rating >= 1; rating-- {
		count := s.RatingDistribution[rating]
		pct := 0.0
		if s.TotalComments > 0 {
			pct = float64(count) / float64(s.TotalComments) * 100
		}
		dist.Append(El("div", A("class", "rating-bar"),
			El("span", A("class", "rating-label"), Text(strconv.Itoa(rating)+"★")),
			El("div", A("class", "rating-progress"),
				El("div", A("class", "rating-fill", "style", fmt.Sprintf("width: %.0f%%", pct))),
			),
			El("span", A("class", "rating-count"), Text(strconv.Itoa(count))),
		))
	}
	return Render(El("div", A("class", "comment-stats", "id", "comment-stats"), summary, dist))
}

// RenderLoadMore renders the "load more" button, or nothing when remaining is 0
func RenderLoadMore(remaining int) string {
	if remaining <= 0 {
		return ""
	}
	return Render(El("button", A(
		"type", "button",
		"id", "load-more-btn",
		"class", "load-more-btn",
		"data-action", ActionLoadMore,
	), Text(fmt.Sprintf("Load more comments (%d remaining)", remaining))))
}
