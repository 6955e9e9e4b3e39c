// Package upload implements the content-upload worker (spec.md §4.6):
// pin generated images and their metadata to IPFS via a Pinata-shaped
// pinning service, then transition tokens to ready.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/NikitaPirate/Glisk/internal/classify"
)

const httpTimeout = 30 * time.Second

// PinClient pins bytes and JSON documents to IPFS via Pinata's
// pinFileToIPFS/pinJSONToIPFS endpoints (grounded on
// original_source/.../services/ipfs/pinata_client.py).
type PinClient struct {
	http          *http.Client
	jwt           string
	gatewayDomain string
	baseURL       string
}

func NewPinClient(jwt, gatewayDomain string) *PinClient {
	return &PinClient{
		http:          &http.Client{Timeout: httpTimeout},
		jwt:           jwt,
		gatewayDomain: gatewayDomain,
		baseURL:       "https://api.pinata.cloud",
	}
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinataFileResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinImage downloads imageURL and pins the bytes under a deterministic
// filename keyed by tokenID.
func (c *PinClient) PinImage(ctx context.Context, imageURL string, tokenID uint64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", classify.Permanent("upload.PinImage.request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify.Transient("upload.PinImage.download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", classify.FromHTTPStatus("upload.PinImage.download", resp.StatusCode, fmt.Errorf("image download failed"))
	}
	imageBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify.Transient("upload.PinImage.read", err)
	}

	filename := fmt.Sprintf("s0-token-%d.png", tokenID)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", classify.Permanent("upload.PinImage.multipart", err)
	}
	if _, err := fw.Write(imageBytes); err != nil {
		return "", classify.Permanent("upload.PinImage.multipart", err)
	}
	meta, _ := json.Marshal(pinataMetadata{
		Name:      filename,
		KeyValues: map[string]string{"season": "0", "token_id": fmt.Sprintf("%d", tokenID)},
	})
	_ = mw.WriteField("pinataOptions", `{"cidVersion": 1}`)
	_ = mw.WriteField("pinataMetadata", string(meta))
	if err := mw.Close(); err != nil {
		return "", classify.Permanent("upload.PinImage.multipart", err)
	}

	pinReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", classify.Permanent("upload.PinImage.request", err)
	}
	pinReq.Header.Set("Authorization", "Bearer "+c.jwt)
	pinReq.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doPinRequest(pinReq)
}

type pinataJSONRequest struct {
	PinataContent interface{}     `json:"pinataContent"`
	PinataOptions json.RawMessage `json:"pinataOptions"`
	PinataMetadata pinataMetadata `json:"pinataMetadata"`
}

// PinMetadata pins an arbitrary JSON document under a deterministic
// metadata filename keyed by tokenID.
func (c *PinClient) PinMetadata(ctx context.Context, metadata interface{}, tokenID uint64) (string, error) {
	filename := fmt.Sprintf("s0-token-%d-metadata.json", tokenID)
	payload := pinataJSONRequest{
		PinataContent:  metadata,
		PinataOptions:  json.RawMessage(`{"cidVersion": 1}`),
		PinataMetadata: pinataMetadata{Name: filename, KeyValues: map[string]string{"season": "0", "token_id": fmt.Sprintf("%d", tokenID)}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", classify.Permanent("upload.PinMetadata.marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinJSONToIPFS", bytes.NewReader(body))
	if err != nil {
		return "", classify.Permanent("upload.PinMetadata.request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", "application/json")

	return c.doPinRequest(req)
}

func (c *PinClient) doPinRequest(req *http.Request) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify.Transient("upload.pin", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", classify.FromHTTPStatus("upload.pin", resp.StatusCode, fmt.Errorf("pinning service rejected request"))
	}

	var out pinataFileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", classify.Permanent("upload.pin.decode", err)
	}
	if out.IpfsHash == "" {
		return "", classify.Permanent("upload.pin", fmt.Errorf("empty IpfsHash in response"))
	}
	return out.IpfsHash, nil
}

// GatewayURL converts a CID into a browsable gateway URL.
func (c *PinClient) GatewayURL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", c.gatewayDomain, cid)
}
