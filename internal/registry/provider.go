package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Provider struct {
	rpcClient *rpcClient
}

func NewProvider(rpcClient *rpcClient) *Provider {
	return &Provider{rpcClient: rpcClient}
}

type tokenOwner struct {
	Owner string `json:"owner"`
}

type tokenApproval struct {
	Approved string `json:"approved"`
}

type transferReceipt struct {
	Success bool   `json:"success"`
	TxId    string `json:"txId"`
}

func (p *Provider) GetTokenOwner(contract string, tokenId uint64) (string, error) {
	response, err := p.call("GetTokenOwner", contract, fmt.Sprintf("%d", tokenId))
	if err != nil {
		return "", err
	}

	jsonString, err := response.ResultAsJson()
	if err != nil {
		return "", err
	}

	var owner tokenOwner
	if err := json.Unmarshal(jsonString, &owner); err != nil {
		return "", err
	}

	return strings.ToLower(owner.Owner), nil
}

func (p *Provider) GetApprovedSpender(contract string, tokenId uint64) (string, error) {
	response, err := p.call("GetApprovedSpender", contract, fmt.Sprintf("%d", tokenId))
	if err != nil {
		return "", err
	}

	jsonString, err := response.ResultAsJson()
	if err != nil {
		return "", err
	}

	var approval tokenApproval
	if err := json.Unmarshal(jsonString, &approval); err != nil {
		return "", err
	}

	return strings.ToLower(approval.Approved), nil
}

func (p *Provider) TransferToken(contract string, tokenId uint64, from, to string) (string, error) {
	response, err := p.call("TransferFrom", contract, fmt.Sprintf("%d", tokenId), from, to)
	if err != nil {
		return "", err
	}

	jsonString, err := response.ResultAsJson()
	if err != nil {
		return "", err
	}

	var receipt transferReceipt
	if err := json.Unmarshal(jsonString, &receipt); err != nil {
		return "", err
	}

	if !receipt.Success {
		return receipt.TxId, errors.New("token transfer rejected by registry")
	}

	return receipt.TxId, nil
}

func (p *Provider) TransferFunds(to string, amount uint64) (string, error) {
	response, err := p.call("TransferFunds", to, fmt.Sprintf("%d", amount))
	if err != nil {
		return "", err
	}

	jsonString, err := response.ResultAsJson()
	if err != nil {
		return "", err
	}

	var receipt transferReceipt
	if err := json.Unmarshal(jsonString, &receipt); err != nil {
		return "", err
	}

	if !receipt.Success {
		return receipt.TxId, errors.New("funds transfer rejected by node")
	}

	return receipt.TxId, nil
}

func (p *Provider) call(method string, params ...interface{}) (*rpcResponse, error) {
	response, err := p.rpcClient.call(method, params)
	if err != nil {
		return nil, err
	}

	if response == nil {
		return nil, errors.New("no response from registry node")
	}

	if response.Error != nil {
		return nil, response.Error
	}

	return response, nil
}
