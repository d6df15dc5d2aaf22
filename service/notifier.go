package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
)

const (
	subjectNewContract     = "New Artist Contract for Review"
	subjectContractOK      = "Your Contract Has Been Approved"
	subjectContractChanges = "Your Contract Needs Changes"
)

var labelTemplate = template.Must(template.New("label").Parse(`<p>Hello{{if .LabelName}} {{.LabelName}}{{end}},</p>
<p>You’ve received a contract proposal from <b>{{if .ArtistName}}{{.ArtistName}} ({{.ArtistEmail}}){{else}}{{.ArtistEmail}}{{end}}</b>.</p>
<p>Please review the {{if .Attached}}attached {{end}}contract and respond accordingly.</p>
<p><a href="{{.Link}}">View contract {{.ContractID}}</a></p>
`))

var artistTemplate = template.Must(template.New("artist").Parse(`<p>Hello{{if .ArtistName}} {{.ArtistName}}{{end}},</p>
{{if .Approved}}<p><b>{{.LabelDisplay}}</b> has approved your contract. The signed copy is attached.</p>
{{else}}<p><b>{{.LabelDisplay}}</b> has reviewed your contract and requested changes. The annotated copy is attached.</p>
{{end}}<p>Reply to this email to reach the label directly.</p>
`))

// ArtistNotice is a label's decision relayed back to the artist.
type ArtistNotice struct {
	ArtistName  string
	LabelName   string
	ArtistEmail string
	LabelEmail  string
	FileName    string
	PDF         []byte
	Approved    bool
}

// Notifier composes contract emails and hands them to a Mailer.
type Notifier struct {
	mailer    Mailer
	from      Address
	publicURL string
	signer    *LinkSigner
	attachPDF bool
}

func NewNotifier(mailer Mailer, from Address, publicURL string, signer *LinkSigner, attachPDF bool) *Notifier {
	return &Notifier{
		mailer:    mailer,
		from:      from,
		publicURL: strings.TrimRight(publicURL, "/"),
		signer:    signer,
		attachPDF: attachPDF,
	}
}

// ContractLink builds the retrieval link embedded in label emails.
func (n *Notifier) ContractLink(contractID string) (string, error) {
	return n.signer.Link(n.publicURL, contractID)
}

// NotifyLabel tells the label a new contract is waiting, replying to the artist.
func (n *Notifier) NotifyLabel(ctx context.Context, contract *model.Contract, pdf []byte) error {
	link, err := n.ContractLink(contract.ID)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	err = labelTemplate.Execute(&body, map[string]any{
		"LabelName":   contract.LabelName,
		"ArtistName":  contract.ArtistName,
		"ArtistEmail": contract.ArtistEmail,
		"ContractID":  contract.ID,
		"Link":        link,
		"Attached":    n.attachPDF,
	})
	if err != nil {
		return fmt.Errorf("failed to render label email: %w", err)
	}

	msg := Message{
		To:      Address{Name: contract.LabelName, Email: contract.LabelEmail},
		From:    n.from,
		ReplyTo: Address{Name: contract.ArtistName, Email: contract.ArtistEmail},
		Subject: subjectNewContract,
		HTML:    body.String(),
	}
	if n.attachPDF {
		msg.Attachment = &Attachment{FileName: contract.FileName, ContentType: pdfContentType, Content: pdf}
	}
	return n.mailer.Send(ctx, msg)
}

// NotifyArtist relays the label's decision, replying to the label.
func (n *Notifier) NotifyArtist(ctx context.Context, notice ArtistNotice) error {
	labelDisplay := notice.LabelName
	if labelDisplay == "" {
		labelDisplay = notice.LabelEmail
	}

	var body bytes.Buffer
	err := artistTemplate.Execute(&body, map[string]any{
		"ArtistName":   notice.ArtistName,
		"LabelDisplay": labelDisplay,
		"Approved":     notice.Approved,
	})
	if err != nil {
		return fmt.Errorf("failed to render artist email: %w", err)
	}

	subject := subjectContractChanges
	if notice.Approved {
		subject = subjectContractOK
	}

	return n.mailer.Send(ctx, Message{
		To:         Address{Name: notice.ArtistName, Email: notice.ArtistEmail},
		From:       n.from,
		ReplyTo:    Address{Name: notice.LabelName, Email: notice.LabelEmail},
		Subject:    subject,
		HTML:       body.String(),
		Attachment: &Attachment{FileName: notice.FileName, ContentType: pdfContentType, Content: notice.PDF},
	})
}
