package zonefile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	scp "github.com/bramvdbogaerde/go-scp"
	"go.uber.org/zap"
)

const DefaultPermissions = "0644"

// Target is where a rendered zone file goes. With SSH set the file is copied
// to the remote host, otherwise it is written locally.
type Target struct {
	Filename    string
	Permissions string
	SSH         *SSHConfig
}

type Writer struct {
	Logger *zap.Logger
}

func (w *Writer) Write(ctx context.Context, target Target, content string) error {
	if target.Filename == "" {
		return fmt.Errorf("zonefile: missing filename")
	}
	if target.Permissions == "" {
		target.Permissions = DefaultPermissions
	}
	perm, err := strconv.ParseUint(target.Permissions, 8, 32)
	if err != nil {
		return fmt.Errorf("zonefile: invalid permissions %q: %w", target.Permissions, err)
	}
	logger := w.Logger.With(
		zap.String("filename", target.Filename),
		zap.String("permissions", target.Permissions),
	)

	if target.SSH == nil {
		logger.Info("saving zone file locally")
		if err := os.WriteFile(target.Filename, []byte(content), fs.FileMode(perm)); err != nil {
			return fmt.Errorf("failed to save to local file: %w", err)
		}
		return nil
	}

	errMsg := "failed to save to remote SSH file"
	conn, err := connect(ctx, *target.SSH, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
	}
	defer conn.Close()
	client, err := scp.NewClientBySSH(conn)
	if err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
	}
	defer client.Close()
	logger.Sugar().Infof("saving zone file to (SSH) %s:%s", target.SSH.Host, target.Filename)
	if err := client.CopyFile(ctx, strings.NewReader(content), target.Filename, target.Permissions); err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
	}
	return nil
}
