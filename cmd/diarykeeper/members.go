package main

import (
	"fmt"
	"strconv"
	"strings"

	"diarykeeper/pkg/catalog"
	"diarykeeper/pkg/ui"

	"github.com/spf13/cobra"
)

var membersGroup string

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Inspect members and manage the desired member list",
	Long: `The desired member list names the members whose posts 'diarykeeper export'
packages by default.`,
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members found in the snapshots",
	Args:  cobra.NoArgs,
	RunE:  runMembersList,
}

var membersAddCmd = &cobra.Command{
	Use:     "add <name...>",
	Short:   "Add members to the desired member list",
	Example: `  diarykeeper members add 小坂菜緒 金村美玖`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runMembersAdd,
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <name...>",
	Short: "Remove members from the desired member list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMembersRemove,
}

var membersDesiredCmd = &cobra.Command{
	Use:   "desired",
	Short: "Show the desired member list",
	Args:  cobra.NoArgs,
	RunE:  runMembersDesired,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersAddCmd)
	membersCmd.AddCommand(membersRemoveCmd)
	membersCmd.AddCommand(membersDesiredCmd)

	membersListCmd.Flags().StringVar(&membersGroup, "group", "", "only list members of this site")
}

func runMembersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, site := range allSites(cfg) {
		if membersGroup != "" && !strings.EqualFold(site.ID, membersGroup) {
			continue
		}
		snapshot, err := catalog.LoadSnapshot(cfg.SnapshotPath(site))
		if err != nil {
			return err
		}
		for _, m := range snapshot {
			latest := "-"
			if ts := m.Latest(); !ts.IsZero() {
				latest = ts.Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{
				site.ID,
				m.Name,
				strconv.Itoa(len(m.Posts)),
				strconv.Itoa(m.ImageCount()),
				latest,
			})
		}
	}
	if len(rows) == 0 {
		ui.PrintWarning("No members found, run 'diarykeeper crawl' first")
		return nil
	}
	ui.PrintTable([]string{"Group", "Member", "Posts", "Images", "Latest"}, rows)
	return nil
}

func loadDesired() (*catalog.DesiredList, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	return catalog.LoadDesiredList(cfg.DesiredMembersPath())
}

func runMembersAdd(cmd *cobra.Command, args []string) error {
	desired, err := loadDesired()
	if err != nil {
		return err
	}
	for _, name := range args {
		added, err := desired.Add(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		if added {
			ui.PrintSuccess("Added " + name)
		} else {
			ui.PrintWarning(name + " is already on the list")
		}
	}
	return nil
}

func runMembersRemove(cmd *cobra.Command, args []string) error {
	desired, err := loadDesired()
	if err != nil {
		return err
	}
	for _, name := range args {
		removed, err := desired.Remove(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		if removed {
			ui.PrintSuccess("Removed " + name)
		} else {
			ui.PrintWarning(name + " is not on the list")
		}
	}
	return nil
}

func runMembersDesired(cmd *cobra.Command, args []string) error {
	desired, err := loadDesired()
	if err != nil {
		return err
	}
	names := desired.Names()
	if len(names) == 0 {
		ui.PrintWarning("The desired member list is empty")
		return nil
	}
	for i, name := range names {
		ui.Println(fmt.Sprintf("%s %s", ui.Dim(strconv.Itoa(i+1)+"."), name))
	}
	return nil
}
