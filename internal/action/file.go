package action

import (
	"context"

	"github.com/corvidbot/gateway/internal/wire"
)

// GetFile fetches a generic upstream-managed file's reference by id.
func (c *Client) GetFile(ctx context.Context, fileID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_file", map[string]string{"file_id": fileID})
}

type uploadGroupFileParams struct {
	GroupID int64  `json:"group_id"`
	File    string `json:"file"`
	Name    string `json:"name"`
	Folder  string `json:"folder,omitempty"`
}

// UploadGroupFile uploads a local file path into a group's file space.
func (c *Client) UploadGroupFile(ctx context.Context, groupID int64, localFile, name, folder string) error {
	_, err := c.call(ctx, "upload_group_file", uploadGroupFileParams{GroupID: groupID, File: localFile, Name: name, Folder: folder})
	return err
}

// GetGroupRootFiles lists the top-level files and folders for a group.
func (c *Client) GetGroupRootFiles(ctx context.Context, groupID int64) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_root_files", struct {
		GroupID int64 `json:"group_id"`
	}{groupID})
}

// GetGroupFilesByFolder lists the contents of one group folder.
func (c *Client) GetGroupFilesByFolder(ctx context.Context, groupID int64, folderID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_files_by_folder", struct {
		GroupID  int64  `json:"group_id"`
		FolderID string `json:"folder_id"`
	}{groupID, folderID})
}

// GetGroupFileURL resolves a download URL for a file already in a
// group's file space.
func (c *Client) GetGroupFileURL(ctx context.Context, groupID int64, fileID, busID string) (*wire.ResponseEvent, error) {
	return c.call(ctx, "get_group_file_url", struct {
		GroupID int64  `json:"group_id"`
		FileID  string `json:"file_id"`
		BusID   string `json:"busid,omitempty"`
	}{groupID, fileID, busID})
}

// DeleteGroupFile removes a file from a group's file space.
func (c *Client) DeleteGroupFile(ctx context.Context, groupID int64, fileID, busID string) error {
	_, err := c.call(ctx, "delete_group_file", struct {
		GroupID int64  `json:"group_id"`
		FileID  string `json:"file_id"`
		BusID   string `json:"busid,omitempty"`
	}{groupID, fileID, busID})
	return err
}

// CreateGroupFileFolder creates a new folder in a group's file space.
func (c *Client) CreateGroupFileFolder(ctx context.Context, groupID int64, name string) error {
	_, err := c.call(ctx, "create_group_file_folder", struct {
		GroupID int64  `json:"group_id"`
		Name    string `json:"name"`
	}{groupID, name})
	return err
}
