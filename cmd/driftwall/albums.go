package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/pkg/source"
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "List and curate albums",
}

var albumsListCmd = &cobra.Command{
	Use:   "list <source>",
	Short: "List known albums of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsList,
}

var albumsSelectCmd = &cobra.Command{
	Use:   "select <source> <album-id>",
	Short: "Add an album to the shuffle pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSelection(cmd, args, true)
	},
}

var albumsDeselectCmd = &cobra.Command{
	Use:   "deselect <source> <album-id>",
	Short: "Remove an album from the shuffle pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSelection(cmd, args, false)
	},
}

var albumsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh album lists and re-sync selected albums",
	RunE:  runAlbumsSync,
}

func init() {
	albumsCmd.AddCommand(albumsListCmd, albumsSelectCmd, albumsDeselectCmd, albumsSyncCmd)
	rootCmd.AddCommand(albumsCmd)
}

func runAlbumsList(cmd *cobra.Command, args []string) error {
	src, err := parseSource(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Refresh from the connector first so the listing is current; a failure
	// still shows whatever is stored locally.
	if err := a.pool.RefreshAlbums(cmd.Context(), src); err != nil {
		cmd.PrintErrf("warning: %v\n", err)
	}

	albums, err := a.store.AlbumsBySource(src)
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		cmd.Printf("no albums known for %s\n", src)
		return nil
	}
	for _, album := range albums {
		mark := " "
		if album.Selected {
			mark = "*"
		}
		cmd.Printf("%s %-40s %-30s %d assets\n", mark, album.ID, album.Name, album.AssetCount)
	}
	return nil
}

func setSelection(cmd *cobra.Command, args []string, selected bool) error {
	src, err := parseSource(args[0])
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	album, err := a.store.Album(src, args[1])
	if err != nil {
		return err
	}
	if album == nil {
		return fmt.Errorf("unknown album %q; run \"driftwall albums list %s\" first", args[1], args[0])
	}

	changed, err := a.pool.SetAlbumSelection(cmd.Context(), src, args[1], selected)
	if err != nil {
		return err
	}
	switch {
	case !changed:
		cmd.Printf("%s: no change\n", album.Name)
	case selected:
		cmd.Printf("%s selected\n", album.Name)
	default:
		cmd.Printf("%s deselected\n", album.Name)
	}
	return nil
}

func runAlbumsSync(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, src := range source.Types() {
		if _, ok := a.connectors[src]; !ok {
			continue
		}
		if err := a.pool.RefreshAlbums(cmd.Context(), src); err != nil {
			cmd.PrintErrf("warning: %v\n", err)
		}
	}
	warnings, err := a.pool.SyncSelectedAlbums(cmd.Context())
	if err != nil {
		return err
	}
	for _, w := range warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}
	cmd.Println("sync complete")
	return nil
}
