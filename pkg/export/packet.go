package export

// Packet describes the renderable content of a case export: a cover sheet,
// the classified RFE sections with their approved responses, the evidence
// checklist, and the exhibit index.
type Packet struct {
	CaseNumber      string
	PetitionerName  string
	BeneficiaryName string
	VisaType        string
	ReceiptNumber   string
	Deadline        string
	Sections        []PacketSection
	Checklist       []PacketChecklistItem
	Exhibits        []PacketExhibit
}

// PacketSection pairs an RFE section with its response text.
type PacketSection struct {
	Title       string
	SectionType string
	Summary     string
	Response    string
}

// PacketChecklistItem is one evidence ask on the cover checklist.
type PacketChecklistItem struct {
	DocumentName string
	Priority     string
	Collected    bool
}

// PacketExhibit is one entry of the exhibit index.
type PacketExhibit struct {
	Label     string
	Title     string
	PageRange string
}
