package action

import (
	"context"

	"github.com/corvidbot/gateway/internal/wire"
)

// GetGroupAlbumList lists the photo albums attached to a group.
func (c *Client) GetGroupAlbumList(ctx context.Context, groupID int64) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_album_list", struct {
		GroupID int64 `json:"group_id"`
	}{groupID})
}

// GetGroupAlbumPhotos lists the photos within one group album.
func (c *Client) GetGroupAlbumPhotos(ctx context.Context, groupID int64, albumID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_album_photos", struct {
		GroupID int64  `json:"group_id"`
		AlbumID string `json:"album_id"`
	}{groupID, albumID})
}

type uploadAlbumPhotoParams struct {
	GroupID int64  `json:"group_id"`
	AlbumID string `json:"album_id"`
	File    string `json:"file"`
}

// UploadGroupAlbumPhoto uploads a local file into a group album.
func (c *Client) UploadGroupAlbumPhoto(ctx context.Context, groupID int64, albumID, localFile string) error {
	_, err := c.call(ctx, "upload_group_album_photo", uploadAlbumPhotoParams{GroupID: groupID, AlbumID: albumID, File: localFile})
	return err
}
