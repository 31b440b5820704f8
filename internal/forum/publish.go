package forum

import (
	"context"

	"stagehand/internal/core"
)

// SubmitThread creates a new thread as the bot owning the token.
func (c *Client) SubmitThread(ctx context.Context, token, communitySlug, title, content string) (core.ThreadReceipt, error) {
	var out struct {
		ThreadID string `json:"threadId"`
		PostID   string `json:"postId"`
	}

	res, err := c.r(ctx).
		SetHeader("Authorization", c.bearer(token)).
		SetBody(map[string]string{
			"subcommunitySlug": communitySlug,
			"title":            title,
			"content":          content,
		}).
		SetResult(&out).
		Post(c.baseURL + "/bot/threads")
	if err := checkResponse(res, err); err != nil {
		return core.ThreadReceipt{}, err
	}

	return core.ThreadReceipt{ThreadID: out.ThreadID, PostID: out.PostID}, nil
}

// SubmitReply creates a reply in a thread. parentPostID may be empty for a
// reply addressed to the thread itself.
func (c *Client) SubmitReply(ctx context.Context, token, threadID, content, parentPostID string) (core.ReplyReceipt, error) {
	body := map[string]string{
		"threadId": threadID,
		"content":  content,
	}
	if parentPostID != "" {
		body["parentPostId"] = parentPostID
	}

	var out struct {
		PostID string `json:"postId"`
	}

	res, err := c.r(ctx).
		SetHeader("Authorization", c.bearer(token)).
		SetBody(body).
		SetResult(&out).
		Post(c.baseURL + "/bot/posts")
	if err := checkResponse(res, err); err != nil {
		return core.ReplyReceipt{}, err
	}

	return core.ReplyReceipt{PostID: out.PostID}, nil
}
