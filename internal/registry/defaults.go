package registry

import "github.com/Klingon-tech/klingscan/pkg/uos"

// DefaultNetworks is the network table written by Seed.
func DefaultNetworks() []uos.NetworkDescriptor {
	return []uos.NetworkDescriptor{
		{
			Slug:        "polkadot",
			Name:        "Polkadot",
			GenesisHash: "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3",
			SS58Prefix:  0,
		},
		{
			Slug:        "kusama",
			Name:        "Kusama",
			GenesisHash: "0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe",
			SS58Prefix:  2,
		},
		{
			Slug:        "westend",
			Name:        "Westend",
			GenesisHash: "0xe143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e",
			SS58Prefix:  42,
		},
		{
			Slug:        "astar",
			Name:        "Astar",
			GenesisHash: "0x9eb76c5184c4ab8679d2d5d819fdf90b9c001403e9e17da2e14b6d8aec4029c6",
			SS58Prefix:  5,
		},
		{
			Slug:        "moonbeam",
			Name:        "Moonbeam",
			GenesisHash: "0xfe58ea77779b7abda7da4ec526d14db9b1e9cd40a217c34892af80a9b332b76d",
			IsEthereum:  true,
			SS58Prefix:  1284,
			ChainID:     1284,
		},
		{
			Slug:        "moonriver",
			Name:        "Moonriver",
			GenesisHash: "0x401a1f9dca3da46f5c4091016c8a2f26dcea05865116b286f60f668207d1474b",
			IsEthereum:  true,
			SS58Prefix:  1285,
			ChainID:     1285,
		},
		{
			Slug:        "ethereum",
			Name:        "Ethereum",
			GenesisHash: "0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3",
			IsEthereum:  true,
			SS58Prefix:  -1,
			ChainID:     1,
		},
	}
}
