package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyerfyer/doc-ingest/internal/models"
	"github.com/spf13/cobra"
)

// linkOptions 读取链接和用户信息的公共选项
type linkOptions struct {
	file     string
	userID   string
	userName string
}

func (o *linkOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "Read links from file, one per line ('-' for stdin)")
	cmd.Flags().StringVar(&o.userID, "user-id", "", "Author id recorded on created documents")
	cmd.Flags().StringVar(&o.userName, "user-name", "", "Author full name recorded on created documents")
}

func (o *linkOptions) user() models.User {
	return models.User{ID: o.userID, FullName: o.userName}
}

// links 合并参数和文件中的链接
func (o *linkOptions) links(cmd *cobra.Command, args []string) ([]string, error) {
	var sources []io.Reader
	if o.file == "-" {
		sources = append(sources, cmd.InOrStdin())
	} else if o.file != "" {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open link file: %w", err)
		}
		defer f.Close()
		sources = append(sources, f)
	}

	links, err := readLinks(args, sources...)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no links given")
	}
	return links, nil
}

// readLinks 读取链接，忽略空行和#开头的注释行，去重并保持顺序
func readLinks(args []string, sources ...io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var links []string
	add := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" || strings.HasPrefix(link, "#") || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	}

	for _, arg := range args {
		add(arg)
	}
	for _, src := range sources {
		scanner := bufio.NewScanner(src)
		for scanner.Scan() {
			add(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read links: %w", err)
		}
	}
	return links, nil
}
