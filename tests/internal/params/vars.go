package params

// PKIResources maps a downloaded file name to the pki-resource query that serves it.
var PKIResources = map[string]string{
	"engine-ca.pem":  "resource=ca-certificate&format=X509-PEM-CA",
	"engine-rsa.pub": "resource=engine-certificate&format=OPENSSH-PUBKEY",
}
