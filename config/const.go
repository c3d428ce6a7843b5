package config

const (
	PathHealthCheck         = "/"
	PathCreateCampaign      = "/create_campaign"
	PathGetCampaigns        = "/get_campaigns"
	PathGetCampaign         = "/get_campaign"
	PathUpdateCampaign      = "/update_campaign"
	PathDeleteCampaign      = "/delete_campaign"
	PathUploadTemplate      = "/upload_template"
	PathUploadRecipients    = "/upload_recipients"
	PathActivateCampaign    = "/activate_campaign"
	PathClaimCertificate    = "/claim_certificate"
	PathDownloadCertificate = "/download_certificate"
	PathCreateTypography    = "/create_typography"
	PathGetTypographies     = "/get_typographies"
)

const (
	DefaultPort   = 9090
	LogLevelDebug = "DEBUG"
)

// file store folders
const (
	FolderTemplates      = "certificate_templates"
	FolderRecipientFiles = "recipient_files"
	FolderFonts          = "fonts"
	FolderCertificates   = "generated_certificates"
)
