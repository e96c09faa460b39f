package cmd

import (
	"fmt"

	"github.com/rongzh/wiz2joplin/internal/cache"
	"github.com/rongzh/wiz2joplin/internal/sync"
)

// displaySyncResult displays what one run did.
//
//nolint:forbidigo // CLI user output function
func displaySyncResult(result *sync.Result) {
	fmt.Printf("\nMigration Results:\n")
	fmt.Printf("  Folders created: %d\n", result.Folders)
	fmt.Printf("  Tags created:    %d\n", result.Tags)
	fmt.Printf("  Notes migrated:  %d\n", result.Notes)
	if result.Existing > 0 {
		fmt.Printf("  Already done:    %d\n", result.Existing)
	}
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:         %d (see the log for details)\n", result.Skipped)
	}
}

// displayStats displays the local store contents.
//
//nolint:forbidigo // CLI user output function
func displayStats(outputDir string, stats cache.Stats) {
	fmt.Printf("Migration state in %s\n\n", outputDir)
	fmt.Printf("Folders:   %d", stats.Folders)
	if stats.FoldersPending > 0 {
		fmt.Printf(" (%d not created remotely yet)", stats.FoldersPending)
	}
	fmt.Println()
	fmt.Printf("Notes:     %d\n", stats.Notes)
	fmt.Printf("Resources: %d\n", stats.Resources)
	fmt.Printf("Tags:      %d\n", stats.Tags)
}

// displayPingOK displays a successful ping.
//
//nolint:forbidigo // CLI user output function
func displayPingOK(host string, port int) {
	fmt.Printf("Joplin Web Clipper service is up at %s:%d\n", host, port)
}
