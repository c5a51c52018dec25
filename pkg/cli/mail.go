package cli

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/dsv-su/dsvgo/pkg/mail"
)

func newMailCommand() *Command {
	cmd := &Command{
		Name:        "mail",
		Description: "List or read mailbox messages",
		Flags:       flag.NewFlagSet("mail", flag.ExitOnError),
		Run:         runMail,
	}

	cmd.Flags.String("folder", "inbox", "Folder to read (inbox, sentitems, drafts, ...)")
	cmd.Flags.Int("limit", 20, "Number of messages to list")
	cmd.Flags.Uint("seq", 0, "Sequence number of one message to read in full")
	cmd.Flags.Bool("html", false, "Prefer the HTML body when reading a message")

	return cmd
}

func runMail(args []string) error {
	cmd := newMailCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	folder := cmd.Flags.Lookup("folder").Value.String()
	limitRaw := cmd.Flags.Lookup("limit").Value.String()
	seqRaw := cmd.Flags.Lookup("seq").Value.String()
	preferHTML := cmd.Flags.Lookup("html").Value.String() == "true"

	limit, err := strconv.Atoi(limitRaw)
	if err != nil {
		return fmt.Errorf("invalid limit: %s", limitRaw)
	}
	seq, err := strconv.ParseUint(seqRaw, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid sequence number: %s", seqRaw)
	}

	ctx, cancel := commandContext()
	defer cancel()

	client, err := newServiceClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	mailbox, err := client.Mail()
	if err != nil {
		return fmt.Errorf("failed to connect to the mailbox: %w", err)
	}

	if seq > 0 {
		prefer := mail.BodyText
		if preferHTML {
			prefer = mail.BodyHTML
		}
		msg, err := mailbox.Message(folder, uint32(seq), prefer)
		if err != nil {
			return fmt.Errorf("failed to fetch message: %w", err)
		}
		fmt.Printf("From:    %s\n", msg.From)
		fmt.Printf("Subject: %s\n", msg.Subject)
		fmt.Printf("Date:    %s\n\n", msg.Date.Format("2006-01-02 15:04"))
		fmt.Println(msg.Body)
		return nil
	}

	messages, err := mailbox.Messages(folder, limit)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", folder, err)
	}
	if len(messages) == 0 {
		fmt.Println("Folder is empty")
		return nil
	}
	for _, m := range messages {
		marker := " "
		if !m.Read {
			marker = "*"
		}
		fmt.Printf("  %s %4d  %-16s  %-28s  %s\n",
			marker, m.SeqNum, m.Date.Format("2006-01-02 15:04"), m.From.Email, m.Subject)
	}
	return nil
}
