package entity

// Allow is the quota policy: a prospective count is accepted while it stays
// within the plan limit.
func Allow(current, limit uint64) bool {
	return current <= limit
}

type Plan struct {
	ID                       *uint64 `json:"id,omitempty"`
	Name                     *string `json:"name,omitempty"`
	MaxCampaigns             *uint64 `json:"max_campaigns,omitempty"`
	MaxRecipientsPerCampaign *uint64 `json:"max_recipients_per_campaign,omitempty"`
	CreateTime               *uint64 `json:"create_time,omitempty"`
}

// CanCreateCampaign checks the owner's campaign count against the plan before
// a new campaign is added.
func (e *Plan) CanCreateCampaign(currentCount uint64) bool {
	return Allow(currentCount+1, e.GetMaxCampaigns())
}

// CanIngestRecipients checks a parsed batch size against the plan.
func (e *Plan) CanIngestRecipients(batchSize uint64) bool {
	return Allow(batchSize, e.GetMaxRecipientsPerCampaign())
}

func (e *Plan) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Plan) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Plan) GetMaxCampaigns() uint64 {
	if e != nil && e.MaxCampaigns != nil {
		return *e.MaxCampaigns
	}
	return 0
}

func (e *Plan) GetMaxRecipientsPerCampaign() uint64 {
	if e != nil && e.MaxRecipientsPerCampaign != nil {
		return *e.MaxRecipientsPerCampaign
	}
	return 0
}
